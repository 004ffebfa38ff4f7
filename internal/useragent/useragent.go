// Package useragent supplies the User-Agent header value sent with every
// scraping request.
package useragent

import "math/rand/v2"

// Provider supplies a User-Agent header value.
type Provider interface {
	UserAgent() string
}

// DefaultAgent is used when a pool is empty.
const DefaultAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Pool draws uniformly at random from a fixed list of identities. It holds
// no mutable state and is safe for concurrent use.
type Pool struct {
	agents []string
}

// NewPool creates a pool over the given agents. Empty entries are dropped.
func NewPool(agents []string) *Pool {
	p := &Pool{}
	for _, a := range agents {
		if a != "" {
			p.agents = append(p.agents, a)
		}
	}
	return p
}

// UserAgent returns a random agent from the pool.
func (p *Pool) UserAgent() string {
	if len(p.agents) == 0 {
		return DefaultAgent
	}
	return p.agents[rand.IntN(len(p.agents))]
}

// Fixed always returns the same agent.
type Fixed string

// UserAgent implements Provider.
func (f Fixed) UserAgent() string { return string(f) }

// Sequence cycles through its agents in order. Used to make rotation
// deterministic; not safe for concurrent use.
type Sequence struct {
	Agents []string
	next   int
}

// UserAgent implements Provider.
func (s *Sequence) UserAgent() string {
	if len(s.Agents) == 0 {
		return DefaultAgent
	}
	a := s.Agents[s.next%len(s.Agents)]
	s.next++
	return a
}
