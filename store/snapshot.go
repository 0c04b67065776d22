package store

import (
	"context"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// SnapshotVersion is written into every exported snapshot.
const SnapshotVersion = 1

// Snapshot is the CBOR export format of a store.
type Snapshot struct {
	Version int      `cbor:"version"`
	Records []Record `cbor:"records"`
}

// cborEncMode uses canonical mode so equal stores export identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("store: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalSnapshot serializes a Snapshot to CBOR bytes.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalSnapshot deserializes a Snapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("store: unmarshal snapshot: %w", err)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("store: unsupported snapshot version %d", s.Version)
	}
	return &s, nil
}

// Export returns every record as a CBOR snapshot.
func (s *Store) Export(ctx context.Context) ([]byte, error) {
	recs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return MarshalSnapshot(&Snapshot{Version: SnapshotVersion, Records: recs})
}

// Import loads a CBOR snapshot, replacing records with the same names. Every
// record is verified against its expression first; a snapshot containing a
// drifted record is rejected as a whole. It returns the number of records
// written.
func (s *Store) Import(ctx context.Context, data []byte) (int, error) {
	snap, err := UnmarshalSnapshot(data)
	if err != nil {
		return 0, err
	}
	for _, rec := range snap.Records {
		if err := verifyRecord(rec); err != nil {
			return 0, fmt.Errorf("store: import: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: import: %w", err)
	}
	for _, rec := range snap.Records {
		if err := upsert(ctx, tx, rec); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("store: import %q: %w", rec.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: import: %w", err)
	}
	log.Infof("imported %d records", len(snap.Records))
	return len(snap.Records), nil
}
