package persist

import (
	"net/rpc"
	"strings"
)

// GetArgs, GetReply, PutArgs, PutReply, DeleteArgs, DeleteReply and the
// CheckpointService/RemoteStore pair below mirror the teacher's
// storage.StoreService/storage.RemoteStore net/rpc plumbing, for a
// checkpoint store that lives on a remote rank 0.

type GetArgs struct {
	Key Key
}

type GetReply struct {
	Value Value
}

type PutArgs struct {
	Key   Key
	Value Value
}

type PutReply struct{}

type DeleteArgs struct {
	Key Key
}

type DeleteReply struct{}

// CheckpointService wraps a Store for use in a net/rpc client-server setup.
type CheckpointService struct {
	delegate Store
}

// NewCheckpointService returns a CheckpointService delegating to store.
func NewCheckpointService(store Store) *CheckpointService {
	return &CheckpointService{delegate: store}
}

func (s *CheckpointService) Get(args GetArgs, reply *GetReply) error {
	v, err := s.delegate.Get(args.Key)
	if err != nil {
		return err
	}
	reply.Value = v
	return nil
}

func (s *CheckpointService) Put(args PutArgs, reply *PutReply) error {
	return s.delegate.Put(args.Key, args.Value)
}

func (s *CheckpointService) Delete(args DeleteArgs, reply *DeleteReply) error {
	return s.delegate.Delete(args.Key)
}

// RemoteStore implements Store against a remote CheckpointService over
// net/rpc.
type RemoteStore struct {
	client *rpc.Client
}

// NewRemoteStore dials a remote CheckpointService.
func NewRemoteStore(network, address string) (*RemoteStore, error) {
	const method = "NewRemoteStore"
	client, err := rpc.DialHTTP(network, address)
	if err != nil {
		return nil, errorf(method, "%s %s: %v", network, address, err)
	}
	return &RemoteStore{client: client}, nil
}

func (s *RemoteStore) Get(key Key) (Value, error) {
	const method = "RemoteStore.Get"
	var reply GetReply
	if err := s.client.Call("CheckpointService.Get", GetArgs{Key: key}, &reply); err != nil {
		if strings.HasSuffix(err.Error(), string(ErrNotFound)) {
			return nil, errorf(method, "%q: %w", key, ErrNotFound)
		}
		return nil, errorf(method, "%q: %v", key, err)
	}
	return reply.Value, nil
}

func (s *RemoteStore) Put(key Key, value Value) error {
	const method = "RemoteStore.Put"
	if err := s.client.Call("CheckpointService.Put", PutArgs{Key: key, Value: value}, new(PutReply)); err != nil {
		return errorf(method, "%q: %v", key, err)
	}
	return nil
}

func (s *RemoteStore) Delete(key Key) error {
	const method = "RemoteStore.Delete"
	if err := s.client.Call("CheckpointService.Delete", DeleteArgs{Key: key}, new(DeleteReply)); err != nil {
		return errorf(method, "%q: %v", key, err)
	}
	return nil
}
