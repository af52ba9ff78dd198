package source

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/spreadline/pkg/errors"
	"github.com/matzehuels/spreadline/pkg/pipeline"
)

func TestReadTopologyCSV(t *testing.T) {
	input := `from,to,year,count
alice,bob,2019,2
bob,carol,2020,1.5
`
	m := pipeline.Mapping{Source: "from", Target: "to", Time: "year", Weight: "count"}
	rows, err := ReadTopologyCSV(strings.NewReader(input), m)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Source != "alice" || rows[0].Weight != 2 {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Time != "2020" || rows[1].Weight != 1.5 {
		t.Errorf("row 1 = %+v", rows[1])
	}
}

func TestReadTopologyCSV_DefaultWeight(t *testing.T) {
	input := "source,target,time\na,b,2020\n"
	rows, err := ReadTopologyCSV(strings.NewReader(input), pipeline.Mapping{
		Source: "source", Target: "target", Time: "time",
	})
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].Weight != 1 {
		t.Errorf("default weight = %v, want 1", rows[0].Weight)
	}
}

func TestReadTopologyCSV_MissingColumn(t *testing.T) {
	input := "source,target\na,b\n"
	_, err := ReadTopologyCSV(strings.NewReader(input), pipeline.DefaultMapping())
	if errors.GetCode(err) != errors.ErrCodeMissingColumn {
		t.Fatalf("err = %v, want missing column code", err)
	}
}

func TestReadTopologyCSV_BadWeight(t *testing.T) {
	input := "source,target,time,weight\na,b,2020,heavy\n"
	_, err := ReadTopologyCSV(strings.NewReader(input), pipeline.DefaultMapping())
	if errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Fatalf("err = %v, want invalid input code", err)
	}
}

func TestReadCategoriesCSV(t *testing.T) {
	input := "entity,category\nalice,lab\nbob,industry\n"
	got, err := ReadCategoriesCSV(strings.NewReader(input), pipeline.DefaultMapping())
	if err != nil {
		t.Fatal(err)
	}
	if got["alice"] != "lab" || got["bob"] != "industry" {
		t.Errorf("categories = %v", got)
	}
}

func TestReadContextsCSV(t *testing.T) {
	input := "entity,time,context\nalice,2019,3\nalice,2019,4\n"
	rows, err := ReadContextsCSV(strings.NewReader(input), pipeline.DefaultMapping())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1].Value != 4 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestReadProfilesCSV_StaticWhenTimestampEmpty(t *testing.T) {
	input := "id,posX,posY\nalice,0.1,0.9\n"
	m := pipeline.DefaultMapping()
	m.Timestamp = ""
	rows, err := ReadProfilesCSV(strings.NewReader(input), m)
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].Time != "" || rows[0].X != 0.1 {
		t.Errorf("row = %+v", rows[0])
	}
}

func TestReadGroupsYAML(t *testing.T) {
	input := `
"2020":
  - [far-a]
  - []
  - [ego]
  - [near-b]
  - []
`
	groups, err := ReadGroupsYAML(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	tiers := groups["2020"]
	if tiers[0][0] != "far-a" || tiers[2][0] != "ego" || tiers[3][0] != "near-b" {
		t.Errorf("tiers = %v", tiers)
	}
}

func TestReadGroupsYAML_WrongTierCount(t *testing.T) {
	input := "\"2020\":\n  - [a]\n  - [b]\n"
	_, err := ReadGroupsYAML(strings.NewReader(input))
	if errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Fatalf("err = %v, want invalid input code", err)
	}
}

func TestSQLiteTopology(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	stmts := []string{
		`CREATE TABLE events (src TEXT, dst TEXT, year TEXT, n REAL)`,
		`INSERT INTO events VALUES ('alice', 'bob', '2019', 2)`,
		`INSERT INTO events VALUES ('bob', 'carol', '2020', 1)`,
	}
	for _, stmt := range stmts {
		if _, err := db.db.ExecContext(ctx, stmt); err != nil {
			t.Fatal(err)
		}
	}

	m := pipeline.Mapping{Source: "src", Target: "dst", Time: "year", Weight: "n"}
	rows, err := db.Topology(ctx, "events", m)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].Source != "alice" || rows[0].Weight != 2 {
		t.Errorf("rows = %+v", rows)
	}

	m.Time = "missing"
	if _, err := db.Topology(ctx, "events", m); errors.GetCode(err) != errors.ErrCodeMissingColumn {
		t.Errorf("missing column not rejected: %v", err)
	}
}
