package dlrstore

import (
	"context"

	"github.com/oonrumail/bearerbox/internal/gwlist"
	"github.com/oonrumail/bearerbox/internal/msg"
)

// MemStore is the default Store: a process-local map, used by tests and
// single-instance deployments where DLR correlation need not survive a
// bearerbox restart.
type MemStore struct {
	dict *gwlist.Dict[*msg.Msg]
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{dict: gwlist.NewDict[*msg.Msg]()}
}

func (s *MemStore) Add(ctx context.Context, smscID, messageID string, m *msg.Msg) error {
	s.dict.Put(key(smscID, messageID), m)
	return nil
}

func (s *MemStore) Find(ctx context.Context, smscID, messageID, destination string, status msg.DLRStatus) (*msg.Msg, bool, error) {
	m, ok := s.dict.Remove(key(smscID, messageID))
	if !ok {
		return nil, false, nil
	}
	return m, true, nil
}

func key(smscID, messageID string) string {
	return smscID + "\x00" + messageID
}
