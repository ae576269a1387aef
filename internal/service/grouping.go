package service

import (
	"fmt"
	"sort"

	"lms_backend/internal/model"
)

// CertificateFamily 关系图中的一个连通分量
type CertificateFamily struct {
	Representative model.EnrichedCertificate   `json:"representative"`
	Members        []model.EnrichedCertificate `json:"members"`
	Badge          string                      `json:"badge,omitempty"`
}

type certNode struct {
	cert model.EnrichedCertificate
	adj  []int
}

// certGraph 节点数组加邻接表
type certGraph struct {
	nodes []certNode
	index map[string]int
	edges map[[2]int]bool
}

func newCertGraph(held []model.EnrichedCertificate) *certGraph {
	g := &certGraph{index: make(map[string]int, len(held)), edges: make(map[[2]int]bool)}
	for _, c := range held {
		if _, dup := g.index[c.ID]; dup {
			continue
		}
		g.index[c.ID] = len(g.nodes)
		g.nodes = append(g.nodes, certNode{cert: c})
	}
	// 只连接用户持有的证书，任一方声明即双向
	for i := range g.nodes {
		for _, rel := range g.nodes[i].cert.Relacionados {
			if j, ok := g.index[rel]; ok && j != i {
				g.link(i, j)
			}
		}
	}
	return g
}

func (g *certGraph) link(a, b int) {
	if a > b {
		a, b = b, a
	}
	key := [2]int{a, b}
	if g.edges[key] {
		return
	}
	g.edges[key] = true
	g.nodes[a].adj = append(g.nodes[a].adj, b)
	g.nodes[b].adj = append(g.nodes[b].adj, a)
}

func (g *certGraph) visit(i int, visited []bool, comp *[]int) {
	visited[i] = true
	*comp = append(*comp, i)
	for _, j := range g.nodes[i].adj {
		if !visited[j] {
			g.visit(j, visited, comp)
		}
	}
}

// GroupCertificates 连通分量按输入顺序发现，组内按级别降序
func GroupCertificates(held []model.EnrichedCertificate) []CertificateFamily {
	g := newCertGraph(held)
	visited := make([]bool, len(g.nodes))

	var families []CertificateFamily
	for i := range g.nodes {
		if visited[i] {
			continue
		}
		var comp []int
		g.visit(i, visited, &comp)

		members := make([]model.EnrichedCertificate, len(comp))
		for k, idx := range comp {
			members[k] = g.nodes[idx].cert
		}
		sort.SliceStable(members, func(a, b int) bool {
			return members[a].LevelOrZero() > members[b].LevelOrZero()
		})

		f := CertificateFamily{Representative: members[0], Members: members}
		if len(members) > 1 {
			f.Badge = fmt.Sprintf("+%d", len(members)-1)
		}
		families = append(families, f)
	}
	return families
}
