// Package shard assigns documents and terms to shards. Each index build
// phase runs one worker per shard, and a shard's maps are only written by
// its own worker, so the partitioning decides which writes can contend.
package shard

import "fmt"

// letterBuckets is the number of first-character buckets terms fall into
// before being collapsed onto the configured term shard count.
const letterBuckets = 26

// Partitioner maps document ids and stemmed terms to shard ids.
type Partitioner struct {
	docShards  int
	termShards int
}

// NewPartitioner returns a Partitioner for docShards document shards and
// termShards term shards. termShards must be within 1..26.
func NewPartitioner(docShards, termShards int) (*Partitioner, error) {
	if docShards < 1 {
		return nil, fmt.Errorf("document shard count must be at least 1, got %d", docShards)
	}
	if termShards < 1 || termShards > letterBuckets {
		return nil, fmt.Errorf("term shard count must be within 1..%d, got %d", letterBuckets, termShards)
	}
	return &Partitioner{docShards: docShards, termShards: termShards}, nil
}

// DocShards returns the number of document shards.
func (p *Partitioner) DocShards() int { return p.docShards }

// TermShards returns the number of term shards.
func (p *Partitioner) TermShards() int { return p.termShards }

// DocShard returns id mod DocShards, normalized into [0, DocShards).
func (p *Partitioner) DocShard(id int64) int {
	s := int(id % int64(p.docShards))
	if s < 0 {
		s += p.docShards
	}
	return s
}

// TermShard buckets term by the distance of its first byte from 'a' (mod 26)
// and collapses the 26 buckets evenly onto TermShards. With 13 shards this
// pairs adjacent letters. The empty term lands in shard 0.
func (p *Partitioner) TermShard(term string) int {
	if term == "" {
		return 0
	}
	d := int(term[0]) - 'a'
	if d < 0 {
		d = -d
	}
	bucket := d % letterBuckets
	return bucket * p.termShards / letterBuckets
}
