package mpicomm

import (
	"fmt"
	"net"
	"net/http"
	"net/rpc"
	"sync"
)

// CoordinatorService assigns ranks to joining processes, so that every
// rank in a networked cluster agrees on the size of the group, and hands
// out monotonically increasing generation numbers on Dup (see Dup for
// what those numbers do and do not identify). It plays the role a
// real MPI runtime's process manager plays for Comm_dup/Comm_size/
// Comm_rank, exposed over net/rpc exactly as the teacher exposes a
// storage.Store over net/rpc (see internal/persist/rpc.go).
type CoordinatorService struct {
	mu         sync.Mutex
	size       int
	nextRank   int
	generation int
}

// NewCoordinatorService creates a coordinator for a cluster of the given
// fixed size.
func NewCoordinatorService(size int) *CoordinatorService {
	return &CoordinatorService{size: size}
}

type JoinArgs struct{}

type JoinReply struct {
	Rank int
	Size int
}

// Join assigns the next available rank to a joining process. Once Size
// ranks have joined, further calls return an error.
func (s *CoordinatorService) Join(_ JoinArgs, reply *JoinReply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nextRank >= s.size {
		return fmt.Errorf("mpicomm: cluster of size %d is full", s.size)
	}
	reply.Rank = s.nextRank
	reply.Size = s.size
	s.nextRank++
	return nil
}

type DupArgs struct {
	Rank int
}

type DupReply struct {
	Generation int
}

// Dup hands out the next generation number from one counter shared by
// all ranks, so every call, from any rank, gets a distinct non-zero
// number. Ranks calling Dup as part of the same collective operation do
// not receive the same number for the duped communicator.
func (s *CoordinatorService) Dup(_ DupArgs, reply *DupReply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	reply.Generation = s.generation
	return nil
}

// Serve starts serving the coordinator over HTTP RPC on the given
// listener, blocking until the listener is closed. Mirrors the teacher's
// net/rpc service setup in internal/persist/rpc.go.
func Serve(l net.Listener, s *CoordinatorService) error {
	server := rpc.NewServer()
	if err := server.RegisterName("CoordinatorService", s); err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle(rpc.DefaultRPCPath, server)
	return http.Serve(l, mux)
}

// RPCComm is a Comm backed by a networked CoordinatorService, for running
// one rank per process.
type RPCComm struct {
	client     *rpc.Client
	rank       int
	size       int
	generation int

	mu    sync.Mutex
	freed bool
}

// Dial joins the cluster coordinator listening at address over network
// (e.g. "tcp") and returns this process's communicator handle.
func Dial(network, address string) (*RPCComm, error) {
	client, err := rpc.DialHTTP(network, address)
	if err != nil {
		return nil, fmt.Errorf("mpicomm.Dial: %w", err)
	}
	var reply JoinReply
	if err := client.Call("CoordinatorService.Join", JoinArgs{}, &reply); err != nil {
		return nil, fmt.Errorf("mpicomm.Dial: join: %w", err)
	}
	return &RPCComm{client: client, rank: reply.Rank, size: reply.Size}, nil
}

func (c *RPCComm) Dup() (Comm, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.freed {
		return nil, ErrNull
	}
	var reply DupReply
	if err := c.client.Call("CoordinatorService.Dup", DupArgs{Rank: c.rank}, &reply); err != nil {
		return nil, fmt.Errorf("mpicomm.RPCComm.Dup: %w", err)
	}
	return &RPCComm{client: c.client, rank: c.rank, size: c.size, generation: reply.Generation}, nil
}

func (c *RPCComm) Size() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.freed {
		return 0, ErrNull
	}
	return c.size, nil
}

func (c *RPCComm) Rank() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.freed {
		return 0, ErrNull
	}
	return c.rank, nil
}

// Free marks this handle as no longer usable. The underlying RPC client
// connection is only closed when the root handle (generation 0) is freed,
// since duped handles share it.
func (c *RPCComm) Free() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.freed {
		return ErrNull
	}
	c.freed = true
	if c.generation == 0 {
		return c.client.Close()
	}
	return nil
}
