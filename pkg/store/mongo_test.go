package store

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/matzehuels/spreadline/pkg/render"
)

func TestFitDocumentEncoding(t *testing.T) {
	doc := fitDocument{
		Key:       "spreadline:fit:abc",
		Ego:       "alice",
		CreatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Result: &render.Result{
			Ego:           "alice",
			BandWidth:     100,
			BlockWidth:    26,
			HeightExtents: [2]int{0, 4},
			TimeLabels:    []render.TimeLabel{{Label: "2020", PosX: 50}},
			Storylines: []render.Storyline{{
				Entity: "alice",
				Points: []render.Point{{X: 50, Y: 10}},
			}},
			Blocks: []render.Block{{
				SessionID: 1,
				Time:      "2020",
				Rounded:   true,
				Points:    []render.Point{{X: 50, Y: 10}},
			}},
		},
	}

	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	var got fitDocument
	if err := bson.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}

	if got.Key != doc.Key || got.Ego != doc.Ego {
		t.Errorf("header round trip: %+v", got)
	}
	if got.Result == nil || len(got.Result.Blocks) != 1 {
		t.Fatalf("result round trip: %+v", got.Result)
	}
	b := got.Result.Blocks[0]
	if b.SessionID != 1 || !b.Rounded || b.HopSections.Top != nil {
		t.Errorf("block round trip: %+v", b)
	}
	if got.Result.HeightExtents != [2]int{0, 4} {
		t.Errorf("extents round trip: %v", got.Result.HeightExtents)
	}
}
