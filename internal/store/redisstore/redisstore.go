// Package redisstore implements store.Store on Redis. Each graph is a set of
// N-Triples statements; a separate set records the named graphs in use.
package redisstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/conduit-lang/sparqld/internal/rdf"
	"github.com/conduit-lang/sparqld/internal/store"
)

// Config holds Redis store configuration
type Config struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// Prefix is prepended to every key
	Prefix string
}

// DefaultConfig returns a default Redis store configuration
func DefaultConfig() Config {
	return Config{
		Addr:   "localhost:6379",
		Prefix: "sparqld:",
	}
}

// Store is a Redis-backed quad store.
type Store struct {
	client *redis.Client
	prefix string
}

// Open connects to Redis and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return NewWithClient(client, cfg.Prefix), nil
}

// NewWithClient creates a store with an existing client
func NewWithClient(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) graphsKey() string {
	return s.prefix + "graphs"
}

func (s *Store) graphKey(graph rdf.Term) string {
	if graph == nil {
		return s.prefix + "default"
	}
	return s.prefix + "graph:" + rdf.FormatTerm(graph)
}

// Match implements store.Store.
func (s *Store) Match(ctx context.Context, graph rdf.Term, subj, pred, obj rdf.Term) ([]rdf.Triple, error) {
	members, err := s.client.SMembers(ctx, s.graphKey(graph)).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}
	sort.Strings(members)

	g, err := rdf.ReadNTriples(strings.NewReader(strings.Join(members, "\n")))
	if err != nil {
		return nil, fmt.Errorf("corrupt statements in %s: %w", s.graphKey(graph), err)
	}
	return g.Match(subj, pred, obj), nil
}

// Graphs implements store.Store.
func (s *Store) Graphs(ctx context.Context) ([]rdf.Term, error) {
	members, err := s.client.SMembers(ctx, s.graphsKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(members)

	out := make([]rdf.Term, 0, len(members))
	for _, m := range members {
		term, err := rdf.ParseTerm(m)
		if err != nil {
			return nil, err
		}
		out = append(out, term)
	}
	return out, nil
}

// Add implements store.Store.
func (s *Store) Add(ctx context.Context, quads ...rdf.Quad) error {
	if len(quads) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, q := range quads {
			pipe.SAdd(ctx, s.graphKey(q.G), q.Triple().String())
			if q.G != nil {
				pipe.SAdd(ctx, s.graphsKey(), rdf.FormatTerm(q.G))
			}
		}
		return nil
	})
	return err
}

// Remove implements store.Store. Named graphs left empty are forgotten.
func (s *Store) Remove(ctx context.Context, quads ...rdf.Quad) error {
	if len(quads) == 0 {
		return nil
	}
	touched := make(map[rdf.Term]bool)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, q := range quads {
			pipe.SRem(ctx, s.graphKey(q.G), q.Triple().String())
			if q.G != nil {
				touched[q.G] = true
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for graph := range touched {
		n, err := s.client.SCard(ctx, s.graphKey(graph)).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			if err := s.client.SRem(ctx, s.graphsKey(), rdf.FormatTerm(graph)).Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clear implements store.Store.
func (s *Store) Clear(ctx context.Context, graph rdf.Term) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.graphKey(graph))
		if graph != nil {
			pipe.SRem(ctx, s.graphsKey(), rdf.FormatTerm(graph))
		}
		return nil
	})
	return err
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.client.Close()
}

var _ store.Store = (*Store)(nil)
