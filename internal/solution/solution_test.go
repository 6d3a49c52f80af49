package solution

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/MatheusssGM/Grafos/internal/solver"
)

type gridDist [][]float64

func (g gridDist) Dist(from, to int) float64 { return g[from][to] }

// lineProblem is a 3-vertex line (1-2-3, unit hops) with one edge service
// and one vertex service.
func lineProblem() solver.Problem {
	return solver.Problem{
		Services: []solver.Service{
			{ID: 1, Kind: solver.KindEdge, Origin: 1, Destination: 2, Demand: 2, ServiceCost: 3},
			{ID: 2, Kind: solver.KindVertex, Origin: 3, Destination: 3, Demand: 1, ServiceCost: 1},
		},
		Depot:    1,
		Capacity: 10,
		Dist: gridDist{
			{0, 0, 0, 0},
			{0, 0, 1, 2},
			{0, 1, 0, 1},
			{0, 2, 1, 0},
		},
	}
}

func TestWrite_ContractExactBytes(t *testing.T) {
	p := lineProblem()
	res := solver.Result{
		Best: solver.Solution{
			Routes:  []solver.Route{{0}, {1}},
			Demands: []int{2, 1},
			Cost:    9,
		},
		TotalNs:     123456,
		BestFoundNs: 789,
	}

	path := filepath.Join(t.TempDir(), "sol-line.dat")
	if err := Write(path, p, res); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := "9\n" +
		"2\n" +
		"123456\n" +
		"789\n" +
		"0 1 1 2 4 3 (D 1,1,1) (S 1,1,2) (D 1,1,1)\n" +
		"0 1 2 1 5 3 (D 1,1,1) (S 2,3,3) (D 1,1,1)\n"
	if string(got) != want {
		t.Fatalf("file mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestWrite_DeduplicatesRepeatedService(t *testing.T) {
	p := lineProblem()
	res := solver.Result{
		Best: solver.Solution{
			// Demand bookkeeping is deliberately stale: the writer must
			// re-sum over the deduplicated services.
			Routes:  []solver.Route{{0, 0, 1}},
			Demands: []int{5},
			Cost:    0,
		},
		TotalNs:     0,
		BestFoundNs: -1,
	}

	path := filepath.Join(t.TempDir(), "sol-dup.dat")
	if err := Write(path, p, res); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := "7\n" +
		"1\n" +
		"0\n" +
		"-1\n" +
		"0 1 1 3 7 4 (D 1,1,1) (S 1,1,2) (S 2,3,3) (D 1,1,1)\n"
	if string(got) != want {
		t.Fatalf("file mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestRead_RoundTrip(t *testing.T) {
	p := lineProblem()
	res := solver.Result{
		Best: solver.Solution{
			Routes:  []solver.Route{{0}, {1}},
			Demands: []int{2, 1},
			Cost:    9,
		},
		TotalNs:     123456,
		BestFoundNs: 789,
	}

	path := filepath.Join(t.TempDir(), "sol-line.dat")
	if err := Write(path, p, res); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rep, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rep.Cost != 9 || rep.RouteCount != 2 {
		t.Fatalf("cost/routes = %v/%d, want 9/2", rep.Cost, rep.RouteCount)
	}
	if rep.TotalNs != 123456 || rep.BestNs != 789 {
		t.Fatalf("timing = %d/%d, want 123456/789", rep.TotalNs, rep.BestNs)
	}
	if want := [][]int{{1}, {2}}; !reflect.DeepEqual(rep.Routes, want) {
		t.Fatalf("Routes = %v, want %v", rep.Routes, want)
	}
}

func TestCompare_PairsByNameAndFlagsMissing(t *testing.T) {
	p := lineProblem()
	userDir, refDir := t.TempDir(), t.TempDir()

	twoRoutes := solver.Result{Best: solver.Solution{Routes: []solver.Route{{0}, {1}}, Demands: []int{2, 1}}}
	oneRoute := solver.Result{Best: solver.Solution{Routes: []solver.Route{{0, 1}}, Demands: []int{3}}}

	if err := Write(filepath.Join(userDir, "sol-x.dat"), p, twoRoutes); err != nil {
		t.Fatalf("write user x: %v", err)
	}
	if err := Write(filepath.Join(refDir, "sol-x.dat"), p, oneRoute); err != nil {
		t.Fatalf("write ref x: %v", err)
	}
	if err := Write(filepath.Join(userDir, "sol-y.dat"), p, twoRoutes); err != nil {
		t.Fatalf("write user y: %v", err)
	}

	rows, err := Compare(userDir, refDir)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	x := rows[0]
	if x.Name != "sol-x.dat" || x.Err != "" {
		t.Fatalf("first row = %+v, want clean sol-x.dat", x)
	}
	if x.UserRoutes != 2 || x.RefRoutes != 1 || x.UserCost != 9 || x.RefCost != 7 {
		t.Fatalf("sol-x comparison = %+v", x)
	}

	y := rows[1]
	if y.Name != "sol-y.dat" || y.Err != "reference not found" {
		t.Fatalf("second row = %+v, want missing-reference flag", y)
	}
}
