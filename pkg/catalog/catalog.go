package catalog

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/nexusdb/nexus/pkg/log"
	"github.com/nexusdb/nexus/pkg/types"
	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketLabels = []byte("labels")
	bucketTypes  = []byte("types")
	bucketKeys   = []byte("keys")
	bucketMeta   = []byte("meta")
)

// JournalFunc appends a catalog-add WAL entry and returns once it is
// durable. Catalog calls it before an Intern* call returns a new id, so a
// crash can never leave an id in use without the WAL entry that minted it.
type JournalFunc func(types.CatalogAdd) error

// namespace holds one interning table: name<->id plus the next id to hand
// out. All three namespaces (label, type, key) are structurally identical.
type namespace struct {
	nameToID map[string]uint32
	idToName map[uint32]string
	nextID   uint32
}

func newNamespace() *namespace {
	return &namespace{nameToID: make(map[string]uint32), idToName: make(map[uint32]string), nextID: 1}
}

// Catalog is the interning authority for labels, relationship types and
// property keys. It is safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	db      *bolt.DB
	labels  *namespace
	types   *namespace
	keys    *namespace
	journal JournalFunc
	logger  zerolog.Logger
}

// Open opens (creating if absent) the catalog snapshot file at path and
// loads its current mapping into memory. journal is called once per new
// name, before Intern* returns the assigned id.
func Open(path string, journal JournalFunc) (*Catalog, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open catalog.dat: %w", err)
	}

	c := &Catalog{
		db:      db,
		labels:  newNamespace(),
		types:   newNamespace(),
		keys:    newNamespace(),
		journal: journal,
		logger:  log.WithComponent("catalog"),
	}

	if err := c.db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketLabels, bucketTypes, bucketKeys, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	if err := c.load(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) load() error {
	return c.db.View(func(tx *bolt.Tx) error {
		loadInto := func(bucket []byte, ns *namespace) {
			b := tx.Bucket(bucket)
			_ = b.ForEach(func(k, v []byte) error {
				id := decodeID(v)
				name := string(k)
				ns.nameToID[name] = id
				ns.idToName[id] = name
				if id+1 > ns.nextID {
					ns.nextID = id + 1
				}
				return nil
			})
		}
		loadInto(bucketLabels, c.labels)
		loadInto(bucketTypes, c.types)
		loadInto(bucketKeys, c.keys)
		return nil
	})
}

func encodeID(id uint32) []byte {
	return []byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
}

func decodeID(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// Close closes the underlying catalog.dat file.
func (c *Catalog) Close() error { return c.db.Close() }

func (c *Catalog) intern(ns *namespace, bucket []byte, nsKind types.CatalogNamespace, name string) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := ns.nameToID[name]; ok {
		return id, nil
	}

	id := ns.nextID
	if c.journal != nil {
		if err := c.journal(types.CatalogAdd{Namespace: nsKind, Name: name, ID: id}); err != nil {
			return 0, fmt.Errorf("journal catalog-add: %w", err)
		}
	}

	if err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(name), encodeID(id))
	}); err != nil {
		return 0, fmt.Errorf("persist catalog entry: %w", err)
	}

	ns.nameToID[name] = id
	ns.idToName[id] = name
	ns.nextID = id + 1

	c.logger.Debug().Str("name", name).Uint32("id", id).Msg("interned catalog entry")
	return id, nil
}

// InternLabel interns name into the label namespace, returning its id.
func (c *Catalog) InternLabel(name string) (types.LabelID, error) {
	id, err := c.intern(c.labels, bucketLabels, types.NamespaceLabel, name)
	return types.LabelID(id), err
}

// InternType interns name into the relationship-type namespace.
func (c *Catalog) InternType(name string) (types.TypeID, error) {
	id, err := c.intern(c.types, bucketTypes, types.NamespaceType, name)
	return types.TypeID(id), err
}

// InternKey interns name into the property-key namespace.
func (c *Catalog) InternKey(name string) (types.KeyID, error) {
	id, err := c.intern(c.keys, bucketKeys, types.NamespaceKey, name)
	return types.KeyID(id), err
}

// LookupLabelID returns the id for name if it has been interned.
func (c *Catalog) LookupLabelID(name string) (types.LabelID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.labels.nameToID[name]
	return types.LabelID(id), ok
}

// LookupTypeID returns the id for name if it has been interned.
func (c *Catalog) LookupTypeID(name string) (types.TypeID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.types.nameToID[name]
	return types.TypeID(id), ok
}

// LookupKeyID returns the id for name if it has been interned.
func (c *Catalog) LookupKeyID(name string) (types.KeyID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.keys.nameToID[name]
	return types.KeyID(id), ok
}

// LabelName returns the name for id, if interned.
func (c *Catalog) LabelName(id types.LabelID) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.labels.idToName[uint32(id)]
	return name, ok
}

// TypeName returns the name for id, if interned.
func (c *Catalog) TypeName(id types.TypeID) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.types.idToName[uint32(id)]
	return name, ok
}

// KeyName returns the name for id, if interned.
func (c *Catalog) KeyName(id types.KeyID) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.keys.idToName[uint32(id)]
	return name, ok
}

// SnapshotBytes returns a consistent point-in-time copy of the underlying
// catalog.dat file, for a replication full sync.
func (c *Catalog) SnapshotBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.db.View(func(tx *bolt.Tx) error {
		_, err := tx.WriteTo(&buf)
		return err
	}); err != nil {
		return nil, fmt.Errorf("snapshot catalog: %w", err)
	}
	return buf.Bytes(), nil
}

// View is an immutable point-in-time copy of the catalog's mappings, used
// by the planner so that a compiled plan is keyed to the catalog version it
// was built against — a label/type/key interned after the plan was cached
// must invalidate it.
type View struct {
	Version    uint64
	LabelNames map[types.LabelID]string
	TypeNames  map[types.TypeID]string
	KeyNames   map[types.KeyID]string
}

// Snapshot returns a copy of the catalog's current mapping plus a version
// counter derived from the total number of interned names (monotonic:
// interning only ever adds entries, never removes or renames them).
func (c *Catalog) Snapshot() View {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v := View{
		LabelNames: make(map[types.LabelID]string, len(c.labels.idToName)),
		TypeNames:  make(map[types.TypeID]string, len(c.types.idToName)),
		KeyNames:   make(map[types.KeyID]string, len(c.keys.idToName)),
	}
	for id, name := range c.labels.idToName {
		v.LabelNames[types.LabelID(id)] = name
	}
	for id, name := range c.types.idToName {
		v.TypeNames[types.TypeID(id)] = name
	}
	for id, name := range c.keys.idToName {
		v.KeyNames[types.KeyID(id)] = name
	}
	v.Version = uint64(len(v.LabelNames) + len(v.TypeNames) + len(v.KeyNames))
	return v
}

// ApplyWAL replays a catalog-add entry during WAL recovery or replica
// apply. It is idempotent: replaying the same add twice is a no-op the
// second time, since recovery may re-apply the tail of the log it already
// applied once before a crash.
func (c *Catalog) ApplyWAL(add types.CatalogAdd) error {
	var ns *namespace
	var bucket []byte
	switch add.Namespace {
	case types.NamespaceLabel:
		ns, bucket = c.labels, bucketLabels
	case types.NamespaceType:
		ns, bucket = c.types, bucketTypes
	case types.NamespaceKey:
		ns, bucket = c.keys, bucketKeys
	default:
		return fmt.Errorf("unknown catalog namespace %d", add.Namespace)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := ns.nameToID[add.Name]; ok {
		return nil
	}

	if err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(add.Name), encodeID(add.ID))
	}); err != nil {
		return fmt.Errorf("persist replayed catalog entry: %w", err)
	}

	ns.nameToID[add.Name] = add.ID
	ns.idToName[add.ID] = add.Name
	if add.ID+1 > ns.nextID {
		ns.nextID = add.ID + 1
	}
	return nil
}
