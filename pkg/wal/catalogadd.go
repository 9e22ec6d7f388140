package wal

import (
	"fmt"

	"github.com/nexusdb/nexus/pkg/types"
)

// EncodeCatalogAdd serializes a single interning event for an OpCatalogAdd
// entry: the Catalog calls this via its JournalFunc before handing out a
// newly interned label/type/key id, so replay can recreate the same id.
func EncodeCatalogAdd(add types.CatalogAdd) []byte {
	buf := []byte{byte(add.Namespace)}
	buf = appendUint32(buf, add.ID)
	buf = appendUint32(buf, uint32(len(add.Name)))
	buf = append(buf, add.Name...)
	return buf
}

// DecodeCatalogAdd parses an OpCatalogAdd payload back into a CatalogAdd,
// for WAL replay and replica apply.
func DecodeCatalogAdd(payload []byte) (types.CatalogAdd, error) {
	if len(payload) < 1 {
		return types.CatalogAdd{}, fmt.Errorf("wal: truncated catalog-add")
	}
	ns := types.CatalogNamespace(payload[0])
	buf := payload[1:]

	id, buf, err := readUint32(buf)
	if err != nil {
		return types.CatalogAdd{}, err
	}
	nameLen, buf, err := readUint32(buf)
	if err != nil {
		return types.CatalogAdd{}, err
	}
	if uint32(len(buf)) < nameLen {
		return types.CatalogAdd{}, fmt.Errorf("wal: truncated catalog-add name")
	}
	name := string(buf[:nameLen])
	return types.CatalogAdd{Namespace: ns, Name: name, ID: id}, nil
}
