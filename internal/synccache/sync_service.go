package synccache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"trip-expense-service/internal/models"
)

// Applier lands one collection's queued mutations on the primary store.
// ApplyCreate returns the id the server assigned, so later entries that still
// reference the offline-local id can be remapped.
type Applier interface {
	ApplyCreate(ctx context.Context, entry Entry) (int64, error)
	ApplyUpdate(ctx context.Context, serverID int64, entry Entry) error
	ApplyDelete(ctx context.Context, serverID int64) error
}

// ReplayResult summarizes one replay run.
type ReplayResult struct {
	Created map[string]int `json:"created"`
	Updated map[string]int `json:"updated"`
	Deleted map[string]int `json:"deleted"`
}

// SyncService is the offline cache facade. Writes land in the Store with
// locally allocated ids and queue themselves for replay; Replay drains the
// queues into the registered appliers in queue order, so the newest write for
// a record is the one that sticks.
type SyncService struct {
	store    Store
	appliers map[string]Applier
}

func NewSyncService(store Store, appliers map[string]Applier) *SyncService {
	return &SyncService{store: store, appliers: appliers}
}

func (s *SyncService) collections() []string {
	names := make([]string, 0, len(s.appliers))
	for name := range s.appliers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RecordCreate stores a new offline record and queues it as NewEntry.
func (s *SyncService) RecordCreate(ctx context.Context, collection string, payload json.RawMessage) (int64, error) {
	if _, ok := s.appliers[collection]; !ok {
		return 0, models.ValidationError(fmt.Sprintf("Unknown collection %q", collection))
	}
	id, err := s.store.NextID(ctx, collection)
	if err != nil {
		return 0, err
	}
	if err := s.store.PutRecord(ctx, collection, id, payload); err != nil {
		return 0, err
	}
	entry := Entry{Collection: collection, LocalID: id, Status: StatusNewEntry, Payload: payload}
	if err := s.store.PushPending(ctx, entry); err != nil {
		return 0, err
	}
	return id, nil
}

// RecordUpdate overwrites an offline record and queues the new state. A
// record that was created offline keeps its NewEntry status so replay still
// creates it exactly once, with the latest payload.
func (s *SyncService) RecordUpdate(ctx context.Context, collection string, id int64, payload json.RawMessage) error {
	if _, ok := s.appliers[collection]; !ok {
		return models.ValidationError(fmt.Sprintf("Unknown collection %q", collection))
	}
	if _, err := s.store.GetRecord(ctx, collection, id); err != nil {
		return err
	}
	if err := s.store.PutRecord(ctx, collection, id, payload); err != nil {
		return err
	}

	status := StatusUpdateEntry
	pending, err := s.store.PendingEntries(ctx, collection)
	if err != nil {
		return err
	}
	for _, e := range pending {
		if e.LocalID == id && e.Status == StatusNewEntry {
			status = StatusNewEntry
			break
		}
	}
	entry := Entry{Collection: collection, LocalID: id, Status: status, Payload: payload}
	return s.store.PushPending(ctx, entry)
}

// RecordDelete drops the offline record and queues the id for server-side
// deletion.
func (s *SyncService) RecordDelete(ctx context.Context, collection string, id int64) error {
	if _, ok := s.appliers[collection]; !ok {
		return models.ValidationError(fmt.Sprintf("Unknown collection %q", collection))
	}
	if err := s.store.DeleteRecord(ctx, collection, id); err != nil {
		return err
	}
	return s.store.PushDeleted(ctx, collection, id)
}

// GetRecord returns the current offline state of one record.
func (s *SyncService) GetRecord(ctx context.Context, collection string, id int64) (json.RawMessage, error) {
	if _, ok := s.appliers[collection]; !ok {
		return nil, models.ValidationError(fmt.Sprintf("Unknown collection %q", collection))
	}
	return s.store.GetRecord(ctx, collection, id)
}

// Replay drains every collection sequentially. Within a collection, pending
// entries apply in queue order: the first NewEntry for a local id creates the
// record and fixes its server id, later entries for that id update it, and
// queued deletes run last. Queues are cleared only after the whole collection
// applied cleanly.
func (s *SyncService) Replay(ctx context.Context) (*ReplayResult, error) {
	result := &ReplayResult{
		Created: make(map[string]int),
		Updated: make(map[string]int),
		Deleted: make(map[string]int),
	}

	for _, collection := range s.collections() {
		applier := s.appliers[collection]

		pending, err := s.store.PendingEntries(ctx, collection)
		if err != nil {
			return nil, err
		}
		deleted, err := s.store.DeletedIDs(ctx, collection)
		if err != nil {
			return nil, err
		}

		serverIDs := make(map[int64]int64)
		for _, entry := range pending {
			if entry.Status == StatusNewEntry {
				if _, created := serverIDs[entry.LocalID]; created {
					// Re-queued edit of an offline-created record.
					if err := applier.ApplyUpdate(ctx, serverIDs[entry.LocalID], entry); err != nil {
						return nil, err
					}
					result.Updated[collection]++
					continue
				}
				serverID, err := applier.ApplyCreate(ctx, entry)
				if err != nil {
					return nil, err
				}
				serverIDs[entry.LocalID] = serverID
				result.Created[collection]++
				continue
			}

			serverID, ok := serverIDs[entry.LocalID]
			if !ok {
				serverID = entry.LocalID
			}
			if err := applier.ApplyUpdate(ctx, serverID, entry); err != nil {
				return nil, err
			}
			result.Updated[collection]++
		}

		for _, id := range deleted {
			serverID, ok := serverIDs[id]
			if !ok {
				serverID = id
			}
			if err := applier.ApplyDelete(ctx, serverID); err != nil {
				return nil, err
			}
			result.Deleted[collection]++
		}

		if err := s.store.ClearPending(ctx, collection); err != nil {
			return nil, err
		}
		if err := s.store.ClearDeleted(ctx, collection); err != nil {
			return nil, err
		}
		for id := range serverIDs {
			if err := s.store.DeleteRecord(ctx, collection, id); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}
