// Package solution serializes solver results in the evaluator's file format
// and reads them back for folder comparisons.
package solution

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MatheusssGM/Grafos/internal/solver"
)

// Render serializes a result. Line 1 holds the total cost, line 2 the route
// count, lines 3-4 the timing figures, then one line per route:
//
//	0 1 <idx> <demand> <cost> <visits> (D <depot>,1,1) (S <id>,<o>,<d>)... (D <depot>,1,1)
//
// Each service is printed once per route even if the internal route carries
// an incidental repeat; demand and cost are recomputed over the deduplicated
// list.
func Render(p solver.Problem, res solver.Result) string {
	routes := res.Best.Routes
	lines := make([]string, 0, len(routes))
	total := 0.0
	for i, r := range routes {
		uniq, demand := dedupRoute(p, r)
		cost := solver.RouteCost(p, uniq)
		total += cost

		var sb strings.Builder
		fmt.Fprintf(&sb, "0 1 %d %d %s %d (D %d,1,1)", i+1, demand, fmtCost(cost), 2+len(uniq), p.Depot)
		for _, idx := range uniq {
			s := p.Services[idx]
			fmt.Fprintf(&sb, " (S %d,%d,%d)", s.ID, s.Origin, s.Destination)
		}
		fmt.Fprintf(&sb, " (D %d,1,1)", p.Depot)
		lines = append(lines, sb.String())
	}

	var b strings.Builder
	b.WriteString(fmtCost(total))
	b.WriteByte('\n')
	b.WriteString(strconv.Itoa(len(routes)))
	b.WriteByte('\n')
	b.WriteString(strconv.FormatInt(res.TotalNs, 10))
	b.WriteByte('\n')
	b.WriteString(strconv.FormatInt(res.BestFoundNs, 10))
	b.WriteByte('\n')
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}

// Write renders a result to path via a temp file and rename, so readers
// never observe a partial solution.
func Write(path string, p solver.Problem, res solver.Result) error {
	return writeAtomic(path, []byte(Render(p, res)))
}

// dedupRoute keeps the first occurrence of each service id and re-sums the
// demand over the survivors.
func dedupRoute(p solver.Problem, r solver.Route) (solver.Route, int) {
	seen := make(map[int]struct{}, len(r))
	uniq := make(solver.Route, 0, len(r))
	demand := 0
	for _, idx := range r {
		id := p.Services[idx].ID
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, idx)
		demand += p.Services[idx].Demand
	}
	return uniq, demand
}

func fmtCost(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sol-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Report is a parsed solution file. RouteCount comes from the header line;
// Routes holds the service ids actually printed per route.
type Report struct {
	Cost       float64
	RouteCount int
	TotalNs    int64
	BestNs     int64
	Routes     [][]int
}

// Read parses a solution file written by Write (or any evaluator-compatible
// producer).
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) < 4 {
		return nil, fmt.Errorf("%s: truncated solution header", name)
	}

	rep := &Report{}
	if rep.Cost, err = strconv.ParseFloat(strings.TrimSpace(lines[0]), 64); err != nil {
		return nil, fmt.Errorf("%s: bad cost line: %w", name, err)
	}
	if rep.RouteCount, err = strconv.Atoi(strings.TrimSpace(lines[1])); err != nil {
		return nil, fmt.Errorf("%s: bad route count line: %w", name, err)
	}
	if rep.TotalNs, err = strconv.ParseInt(strings.TrimSpace(lines[2]), 10, 64); err != nil {
		return nil, fmt.Errorf("%s: bad total time line: %w", name, err)
	}
	if rep.BestNs, err = strconv.ParseInt(strings.TrimSpace(lines[3]), 10, 64); err != nil {
		return nil, fmt.Errorf("%s: bad best time line: %w", name, err)
	}

	for _, line := range lines[4:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		var ids []int
		for i, tok := range fields {
			if tok != "(S" || i+1 >= len(fields) {
				continue
			}
			idStr, _, _ := strings.Cut(fields[i+1], ",")
			id, err := strconv.Atoi(idStr)
			if err != nil {
				return nil, fmt.Errorf("%s: bad service token %q", name, fields[i+1])
			}
			ids = append(ids, id)
		}
		rep.Routes = append(rep.Routes, ids)
	}
	return rep, nil
}

// Row is one instance in a folder comparison. Err is set when the reference
// file is missing or either side failed to parse.
type Row struct {
	Name       string
	Err        string
	UserRoutes int
	RefRoutes  int
	UserCost   float64
	RefCost    float64
}

// Compare pairs every .dat solution in userDir with the same-named file in
// refDir. Rows come back in file-name order; unreadable pairs produce an
// error row instead of failing the whole run.
func Compare(userDir, refDir string) ([]Row, error) {
	entries, err := os.ReadDir(userDir)
	if err != nil {
		return nil, err
	}
	var rows []Row
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".dat") {
			continue
		}
		row := Row{Name: name}
		refPath := filepath.Join(refDir, name)
		if _, err := os.Stat(refPath); err != nil {
			row.Err = "reference not found"
			rows = append(rows, row)
			continue
		}
		user, err := Read(filepath.Join(userDir, name))
		if err != nil {
			row.Err = err.Error()
			rows = append(rows, row)
			continue
		}
		ref, err := Read(refPath)
		if err != nil {
			row.Err = err.Error()
			rows = append(rows, row)
			continue
		}
		row.UserRoutes, row.RefRoutes = user.RouteCount, ref.RouteCount
		row.UserCost, row.RefCost = user.Cost, ref.Cost
		rows = append(rows, row)
	}
	return rows, nil
}
