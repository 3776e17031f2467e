// Copyright 2025 Truthcrawl Project

package dispute

import (
	"sort"
	"strconv"

	"github.com/truthcrawl/node/pkg/codec"
)

// Stats is one node's tally of wins and losses across resolved disputes.
type Stats struct {
	Wins   int
	Losses int
}

// Reputation is a node_id -> Stats table, always re-derived from a set
// of resolutions — it is never persisted as ground truth.
type Reputation map[string]Stats

// Compute folds resolutions into priors: nodes named in a resolution's
// MajorityNodes gain a win, nodes in MinorityNodes a loss. Resolutions
// with outcome DISMISSED or INCONCLUSIVE contribute nothing.
func Compute(resolutions []*Resolution, priors Reputation) Reputation {
	out := make(Reputation, len(priors))
	for node, stats := range priors {
		out[node] = stats
	}

	for _, res := range resolutions {
		if res.Outcome != Upheld {
			continue
		}
		for _, node := range res.MajorityNodes {
			s := out[node]
			s.Wins++
			out[node] = s
		}
		for _, node := range res.MinorityNodes {
			s := out[node]
			s.Losses++
			out[node] = s
		}
	}

	return out
}

// Emit renders the reputation table as canonical text, one node per
// line, sorted by win count descending then node_id ascending.
func (rep Reputation) Emit() []byte {
	nodes := make([]string, 0, len(rep))
	for node := range rep {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		si, sj := rep[nodes[i]], rep[nodes[j]]
		if si.Wins != sj.Wins {
			return si.Wins > sj.Wins
		}
		return nodes[i] < nodes[j]
	})

	w := codec.NewWriter()
	for _, node := range nodes {
		s := rep[node]
		w.Raw(node + ":" + strconv.Itoa(s.Wins) + ":" + strconv.Itoa(s.Losses))
	}
	return w.Bytes()
}
