// Package contentstore provides a content-association library with pluggable
// repository and blob storage backends.
//
// It exposes a single Service interface that combines the individual store
// contracts: Store (resource handles), AssociativeStore (linking resources to
// entity property paths), ContentStore (byte-stream content access),
// ReactiveContentStore (channel-based streaming), Searchable (full-text
// lookup) and Renderable (mime-type renditions). Implementations of
// repositories (memory, Postgres), blob stores (memory, filesystem, S3) and
// search indexes (memory, SQLite FTS) live under subpackages.
//
// Associations are explicit records rather than annotations: an EntityRef
// names a property path on a host entity ("cover.image") and the service
// resolves it to the associated resource. Store operations emit typed events
// through an EventSink; sink errors on Before* events abort the operation.
package contentstore
