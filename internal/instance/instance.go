// Package instance reads CARP benchmark files in the .dat format and turns
// them into the solver's problem view.
package instance

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/MatheusssGM/Grafos/internal/matrix"
	"github.com/MatheusssGM/Grafos/internal/solver"
)

// ReqVertex is a mandatory vertex service line (ReN. section).
type ReqVertex struct {
	Node        int
	Demand      int
	ServiceCost float64
}

// Edge is an undirected travel link, endpoints normalized so U <= V.
type Edge struct {
	U, V int
	Cost float64
}

// Arc is a directed travel link.
type Arc struct {
	From, To int
	Cost     float64
}

// ReqEdge is a mandatory edge service (ReE. section), endpoints normalized.
type ReqEdge struct {
	U, V        int
	Cost        float64
	Demand      int
	ServiceCost float64
}

// ReqArc is a mandatory arc service (ReA. section).
type ReqArc struct {
	From, To    int
	Cost        float64
	Demand      int
	ServiceCost float64
}

// Instance is one parsed benchmark file. Edges and Arcs hold every travel
// link including the mandatory ones; the Req* slices hold the services.
type Instance struct {
	Name     string
	Header   map[string]string
	Capacity int
	Depot    int

	Edges       []Edge
	Arcs        []Arc
	ReqVertices []ReqVertex
	ReqEdges    []ReqEdge
	ReqArcs     []ReqArc

	// BadLines counts data lines dropped for parse errors.
	BadLines int

	maxVertex int
}

// header keys recognized at any point in the file, checked before anything
// else the way the format is usually laid out.
var headerKeys = []string{
	"Optimal value:", "Capacity:", "Depot Node:", "#Nodes:", "#Edges:", "#Arcs:",
	"#Required N:", "#Required E:", "#Required A:",
}

// Load reads one .dat file; the instance name is the file's base name.
func Load(path string) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, filepath.Base(path))
}

// Parse reads the .dat format: "Key: value" header lines, section markers
// ReN., ReE., EDGE, ReA. and ARC, then one data line per vertex/edge/arc.
// Comment lines, the Name header and provenance notes are skipped; malformed
// data lines are dropped and counted in BadLines. Duplicate lines collapse.
func Parse(r io.Reader, name string) (*Instance, error) {
	in := &Instance{Name: name, Header: map[string]string{}}
	seenE := map[Edge]struct{}{}
	seenA := map[Arc]struct{}{}
	seenRV := map[ReqVertex]struct{}{}
	seenRE := map[ReqEdge]struct{}{}
	seenRA := map[ReqArc]struct{}{}

	section := ""
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		if key, val, ok := headerLine(line); ok {
			in.Header[key] = val
			continue
		}
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "Name:") ||
			strings.Contains(strings.ToLower(line), "based on the") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "ReN."):
			section = "ReN"
			continue
		case strings.HasPrefix(line, "ReE."):
			section = "ReE"
			continue
		case strings.HasPrefix(line, "EDGE"):
			section = "EDGE"
			continue
		case strings.HasPrefix(line, "ReA."):
			section = "ReA"
			continue
		case strings.HasPrefix(line, "ARC"):
			section = "ARC"
			continue
		}
		if section == "" {
			continue
		}

		parts := strings.Fields(line)
		switch section {
		case "ReN":
			node, ok1 := atoi(strings.ReplaceAll(pick(parts, 0), "N", ""))
			demand, ok2 := atoi(pick(parts, 1))
			scost, ok3 := atoi(pick(parts, 2))
			if !ok1 || !ok2 || !ok3 {
				in.BadLines++
				continue
			}
			rv := ReqVertex{Node: node, Demand: demand, ServiceCost: float64(scost)}
			if _, dup := seenRV[rv]; !dup {
				seenRV[rv] = struct{}{}
				in.ReqVertices = append(in.ReqVertices, rv)
			}
			in.touch(node)

		case "ReE", "EDGE":
			u, ok1 := atoi(pick(parts, 1))
			v, ok2 := atoi(pick(parts, 2))
			tcost, ok3 := atoi(pick(parts, 3))
			if !ok1 || !ok2 || !ok3 {
				in.BadLines++
				continue
			}
			lo, hi := u, v
			if lo > hi {
				lo, hi = hi, lo
			}
			e := Edge{U: lo, V: hi, Cost: float64(tcost)}
			if _, dup := seenE[e]; !dup {
				seenE[e] = struct{}{}
				in.Edges = append(in.Edges, e)
			}
			in.touch(u)
			in.touch(v)
			if section == "ReE" {
				demand, ok4 := atoi(pick(parts, 4))
				scost, ok5 := atoi(pick(parts, 5))
				if !ok4 || !ok5 {
					in.BadLines++
					continue
				}
				re := ReqEdge{U: lo, V: hi, Cost: float64(tcost), Demand: demand, ServiceCost: float64(scost)}
				if _, dup := seenRE[re]; !dup {
					seenRE[re] = struct{}{}
					in.ReqEdges = append(in.ReqEdges, re)
				}
			}

		case "ReA", "ARC":
			from, ok1 := atoi(pick(parts, 1))
			to, ok2 := atoi(pick(parts, 2))
			tcost, ok3 := atoi(pick(parts, 3))
			if !ok1 || !ok2 || !ok3 {
				in.BadLines++
				continue
			}
			a := Arc{From: from, To: to, Cost: float64(tcost)}
			if _, dup := seenA[a]; !dup {
				seenA[a] = struct{}{}
				in.Arcs = append(in.Arcs, a)
			}
			in.touch(from)
			in.touch(to)
			if section == "ReA" {
				demand, ok4 := atoi(pick(parts, 4))
				scost, ok5 := atoi(pick(parts, 5))
				if !ok4 || !ok5 {
					in.BadLines++
					continue
				}
				ra := ReqArc{From: from, To: to, Cost: float64(tcost), Demand: demand, ServiceCost: float64(scost)}
				if _, dup := seenRA[ra]; !dup {
					seenRA[ra] = struct{}{}
					in.ReqArcs = append(in.ReqArcs, ra)
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	capVal, ok := in.Header["Capacity"]
	if !ok {
		return nil, fmt.Errorf("%s: missing Capacity header", name)
	}
	c, err := strconv.Atoi(capVal)
	if err != nil {
		return nil, fmt.Errorf("%s: bad Capacity %q", name, capVal)
	}
	in.Capacity = c
	if v, ok := in.Header["Depot Node"]; ok {
		d, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: bad Depot Node %q", name, v)
		}
		in.Depot = d
	}
	return in, nil
}

func headerLine(line string) (key, val string, ok bool) {
	for _, k := range headerKeys {
		if strings.HasPrefix(line, k) {
			key, val, _ := strings.Cut(line, ":")
			return strings.TrimSpace(key), strings.TrimSpace(val), true
		}
	}
	return "", "", false
}

func pick(parts []string, i int) string {
	if i >= len(parts) {
		return ""
	}
	return parts[i]
}

func atoi(s string) (int, bool) {
	v, err := strconv.Atoi(s)
	return v, err == nil
}

func (in *Instance) touch(v int) {
	if v > in.maxVertex {
		in.maxVertex = v
	}
}

// NodeCount is the vertex range for the distance matrix: the declared
// "#Nodes" header stretched to cover any larger id actually referenced.
func (in *Instance) NodeCount() int {
	n := in.maxVertex
	if v, err := strconv.Atoi(in.Header["#Nodes"]); err == nil && v > n {
		n = v
	}
	if in.Depot > n {
		n = in.Depot
	}
	return n
}

// Services extracts the mandatory services as the solver catalog: required
// vertices first, then edges, then arcs, each group in ascending endpoint
// order, with ids assigned sequentially from 1.
func (in *Instance) Services() []solver.Service {
	out := make([]solver.Service, 0, len(in.ReqVertices)+len(in.ReqEdges)+len(in.ReqArcs))

	verts := append([]ReqVertex(nil), in.ReqVertices...)
	sort.SliceStable(verts, func(a, b int) bool { return verts[a].Node < verts[b].Node })
	edges := append([]ReqEdge(nil), in.ReqEdges...)
	sort.SliceStable(edges, func(a, b int) bool {
		if edges[a].U != edges[b].U {
			return edges[a].U < edges[b].U
		}
		return edges[a].V < edges[b].V
	})
	arcs := append([]ReqArc(nil), in.ReqArcs...)
	sort.SliceStable(arcs, func(a, b int) bool {
		if arcs[a].From != arcs[b].From {
			return arcs[a].From < arcs[b].From
		}
		return arcs[a].To < arcs[b].To
	})

	id := 1
	for _, v := range verts {
		out = append(out, solver.Service{
			ID: id, Kind: solver.KindVertex,
			Origin: v.Node, Destination: v.Node,
			Demand: v.Demand, ServiceCost: v.ServiceCost,
		})
		id++
	}
	for _, e := range edges {
		out = append(out, solver.Service{
			ID: id, Kind: solver.KindEdge,
			Origin: e.U, Destination: e.V,
			Demand: e.Demand, ServiceCost: e.ServiceCost,
		})
		id++
	}
	for _, a := range arcs {
		out = append(out, solver.Service{
			ID: id, Kind: solver.KindArc,
			Origin: a.From, Destination: a.To,
			Demand: a.Demand, ServiceCost: a.ServiceCost,
		})
		id++
	}
	return out
}

// DistanceMatrix closes the travel links into all-pairs shortest paths.
// Edges seed both directions, arcs one.
func (in *Instance) DistanceMatrix() *matrix.Matrix {
	links := make([]matrix.Link, 0, 2*len(in.Edges)+len(in.Arcs))
	for _, e := range in.Edges {
		links = append(links,
			matrix.Link{From: e.U, To: e.V, Cost: e.Cost},
			matrix.Link{From: e.V, To: e.U, Cost: e.Cost})
	}
	for _, a := range in.Arcs {
		links = append(links, matrix.Link{From: a.From, To: a.To, Cost: a.Cost})
	}
	return matrix.New(in.NodeCount(), links)
}

// Problem assembles the solver view: service catalog, depot, capacity and
// the closed distance matrix.
func (in *Instance) Problem() solver.Problem {
	return solver.Problem{
		Services: in.Services(),
		Depot:    in.Depot,
		Capacity: in.Capacity,
		Dist:     in.DistanceMatrix(),
	}
}
