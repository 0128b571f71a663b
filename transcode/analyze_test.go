package transcode

import (
	"slices"
	"testing"
)

func TestContainerFieldFirstArrayWins(t *testing.T) {
	doc := mustParse(t, bikeStoreSchema)
	name, ok := doc.ContainerField()
	if !ok || name != "stores" {
		t.Fatalf("ContainerField = %q, %v; want stores, true", name, ok)
	}

	doc = mustParse(t, `{
		"type": "object",
		"properties": {
			"title": {"type": "string"},
			"criteria": {"type": "array", "items": {"type": "object"}},
			"submissions": {"type": "array", "items": {"type": "object"}}
		}
	}`)
	name, ok = doc.ContainerField()
	if !ok || name != "criteria" {
		t.Fatalf("ContainerField = %q, %v; want criteria (source order), true", name, ok)
	}
}

func TestContainerFieldAbsent(t *testing.T) {
	doc := mustParse(t, `{"type": "object", "properties": {"title": {"type": "string"}}}`)
	if name, ok := doc.ContainerField(); ok {
		t.Fatalf("ContainerField = %q on array-free schema, want none", name)
	}
}

func TestArrayFieldNames(t *testing.T) {
	doc := mustParse(t, bikeStoreSchema)
	got := doc.ArrayFieldNames()
	if !slices.Contains(got, "stores") || !slices.Contains(got, "bike_sales") {
		t.Fatalf("ArrayFieldNames = %v, want stores and bike_sales", got)
	}

	doc = mustParse(t, `{"type": "object", "properties": {"title": {"type": "string"}}}`)
	got = doc.ArrayFieldNames()
	if !slices.Equal(got, legacyDefaultPrefixes) {
		t.Fatalf("ArrayFieldNames on array-free schema = %v, want %v", got, legacyDefaultPrefixes)
	}

	var nilDoc *Document
	if got := nilDoc.ArrayFieldNames(); !slices.Equal(got, legacyDefaultPrefixes) {
		t.Fatalf("ArrayFieldNames on nil document = %v, want %v", got, legacyDefaultPrefixes)
	}
}

func TestHierarchyClassification(t *testing.T) {
	doc := mustParse(t, bikeStoreSchema)
	h := doc.Hierarchy()

	stores, ok := h["stores"]
	if !ok {
		t.Fatalf("hierarchy missing stores entry: %v", h)
	}
	if !slices.Equal(stores.DirectFields, []string{"name"}) {
		t.Fatalf("stores direct fields = %v, want [name]", stores.DirectFields)
	}
	if !slices.Equal(stores.ArrayFields, []string{"bike_sales"}) {
		t.Fatalf("stores array fields = %v, want [bike_sales]", stores.ArrayFields)
	}
	loc := stores.NestedObjects["location"]
	if loc.Kind != NestedSimple || !slices.Equal(loc.Fields, []string{"city", "state"}) {
		t.Fatalf("location = %+v, want simple object with [city state]", loc)
	}
	owner := stores.NestedObjects["owner"]
	if owner.Kind != NestedReference || owner.RefName != "Owner" {
		t.Fatalf("owner = %+v, want reference to Owner", owner)
	}
	if !slices.Equal(owner.Fields, []string{"full_name", "email"}) {
		t.Fatalf("owner fields = %v, want [full_name email]", owner.Fields)
	}

	sales, ok := h["stores_bike_sales"]
	if !ok {
		t.Fatalf("hierarchy missing stores_bike_sales entry: %v", h)
	}
	if sales.depth != 2 {
		t.Fatalf("stores_bike_sales depth = %d, want 2", sales.depth)
	}
	if !slices.Equal(sales.DirectFields, []string{"quantity", "sale_date"}) {
		t.Fatalf("bike_sales direct fields = %v", sales.DirectFields)
	}
	bike := sales.NestedObjects["bike"]
	if bike.Kind != NestedUnion {
		t.Fatalf("bike = %+v, want union", bike)
	}
	if !slices.Equal(bike.Branches, []string{"MountainBike", "RoadBike"}) {
		t.Fatalf("bike branches = %v", bike.Branches)
	}
	for _, f := range []string{"brand", "price", "suspension", "frame"} {
		if !slices.Contains(bike.Fields, f) {
			t.Fatalf("bike member fields = %v, missing %q", bike.Fields, f)
		}
	}
}

func TestHierarchyDegradesOnUnresolvableItems(t *testing.T) {
	doc := mustParse(t, `{
		"type": "object",
		"properties": {
			"rows": {"type": "array", "items": {"$ref": "#/definitions/Missing"}}
		}
	}`)
	h := doc.Hierarchy()
	rows, ok := h["rows"]
	if !ok {
		t.Fatal("hierarchy missing rows entry")
	}
	if len(rows.DirectFields) != 0 || len(rows.NestedObjects) != 0 || len(rows.ArrayFields) != 0 {
		t.Fatalf("rows entry should be empty, got %+v", rows)
	}
}

func TestHierarchyDepthGuard(t *testing.T) {
	doc := mustParse(t, `{
		"type": "object",
		"properties": {"levels": {"type": "array", "items": {"$ref": "#/definitions/Level"}}},
		"definitions": {
			"Level": {
				"type": "object",
				"properties": {
					"label": {"type": "string"},
					"levels": {"type": "array", "items": {"$ref": "#/definitions/Level"}}
				}
			}
		}
	}`)
	h := doc.Hierarchy()
	for key, entry := range h {
		if entry.depth > maxArrayDepth {
			t.Fatalf("entry %q exceeds depth bound: %d", key, entry.depth)
		}
	}
	if _, ok := h["levels"]; !ok {
		t.Fatal("top-level entry missing")
	}
	if _, ok := h["levels_levels"]; !ok {
		t.Fatal("second-level entry missing")
	}
}
