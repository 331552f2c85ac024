package testutil

import (
	"strconv"
	"testing"

	"github.com/hupe1980/memgo/graph"
)

// SeedChunks returns the four chunks used to bootstrap a store: three
// animal concepts plus a close variant of the first.
func SeedChunks() []map[string]float64 {
	return []map[string]float64{
		{"0": 0.9, "1": 0.8, "2": 0.7},              // cat
		{"3": 0.85, "1": 0.82, "2": 0.75, "4": 0.9}, // dog
		{"5": 0.92, "1": 0.88, "2": 0.8},            // lion
		{"0": 0.7, "6": 0.9},                        // similar cat
	}
}

// FollowupChunks returns a second wave of chunks: refinements of the seed
// animals, distinct new categories, overlapping concepts and one chunk of
// unrelated noise.
func FollowupChunks() []map[string]float64 {
	return []map[string]float64{
		{"0": 0.88, "1": 0.75, "2": 0.68, "7": 0.3},
		{"3": 0.9, "1": 0.80, "2": 0.73, "4": 0.88, "8": 0.4},
		{"5": 0.85, "1": 0.7, "2": 0.78, "9": 0.3},

		{"10": 0.9, "11": 0.7, "12": 0.6}, // car
		{"10": 0.8, "11": 0.6, "13": 0.8}, // truck
		{"14": 0.9, "15": 0.8, "16": 0.7}, // apple
		{"17": 0.8, "18": 0.7, "19": 0.9}, // pizza
		{"20": 0.9, "21": 0.8, "22": 0.8}, // park
		{"23": 0.8, "24": 0.7, "25": 0.9}, // home

		{"0": 0.8, "1": 0.7, "2": 0.6, "6": 0.8, "26": 0.9},             // pet cat
		{"3": 0.7, "1": 0.6, "2": 0.65, "4": 0.8, "27": 0.8, "28": 0.8}, // labrador

		{"90": 0.2, "91": 0.4, "92": 0.1, "93": 0.3}, // noise
	}
}

// ChunkDimension returns the smallest dimension covering every integer
// feature key in the given chunk sets. Non-integer keys are ignored.
func ChunkDimension(chunkSets ...[]map[string]float64) int {
	dim := 0

	for _, chunks := range chunkSets {
		for _, chunk := range chunks {
			for key := range chunk {
				i, err := strconv.Atoi(key)
				if err != nil || i < 0 {
					continue
				}

				if i+1 > dim {
					dim = i + 1
				}
			}
		}
	}

	return dim
}

// AnimalGraph builds the shared knowledge graph fixture: animals, vehicles,
// food and places spread over four abstraction layers and connected by
// is_a and has_attribute relations. The base animals carry the reference
// weights of the records produced by consolidating SeedChunks.
func AnimalGraph(tb testing.TB) *graph.Store {
	tb.Helper()

	g := graph.NewStore()

	nodes := []graph.Node{
		{ID: "animal", Name: "Animal", Layer: 2, RefWeights: []float64{0, 1, 2}, Attrs: map[string]string{graph.AttrDescription: "Living organisms that feed on organic matter."}},
		{ID: "cat", Name: "Cat", Layer: 1, RefWeights: []float64{0}, Attrs: map[string]string{"lifespan": "12-15 years"}},
		{ID: "dog", Name: "Dog", Layer: 1, RefWeights: []float64{1}, Attrs: map[string]string{"lifespan": "10-13 years"}},
		{ID: "lion", Name: "Lion", Layer: 1, RefWeights: []float64{2}, Attrs: map[string]string{"habitat": "Africa"}},
		{ID: "domestic", Name: "Domestic", Layer: 2, Attrs: map[string]string{graph.AttrDescription: "Animals that have been tamed or kept as a pet"}},
		{ID: "pet", Name: "Pet", Layer: 2, Attrs: map[string]string{graph.AttrDescription: "An animal kept for companionship."}},
		{ID: "labrador", Name: "Labrador Retriever", Layer: 0, RefWeights: []float64{1}, Attrs: map[string]string{"origin": "Newfoundland"}},
		{ID: "mammal", Name: "Mammal", Layer: 3, Attrs: map[string]string{graph.AttrDescription: "Warm-blooded vertebrate animals"}},
		{ID: "vehicle", Name: "Vehicle", Layer: 2, Attrs: map[string]string{graph.AttrDescription: "A thing used for transporting people or goods."}},
		{ID: "transportation", Name: "Transportation", Layer: 3, Attrs: map[string]string{graph.AttrDescription: "The act or process of transporting or being transported."}},
		{ID: "car", Name: "Car", Layer: 1, Attrs: map[string]string{"type": "sedan"}},
		{ID: "truck", Name: "Truck", Layer: 1, Attrs: map[string]string{"type": "pickup"}},
		{ID: "food", Name: "Food", Layer: 2, Attrs: map[string]string{graph.AttrDescription: "Any nutritious substance that people or animals eat or drink"}},
		{ID: "apple", Name: "Apple", Layer: 1, Attrs: map[string]string{"type": "fruit"}},
		{ID: "pizza", Name: "Pizza", Layer: 1, Attrs: map[string]string{"type": "meal"}},
		{ID: "place", Name: "Place", Layer: 2, Attrs: map[string]string{graph.AttrDescription: "A particular position or point in space."}},
		{ID: "park", Name: "Park", Layer: 1, Attrs: map[string]string{"type": "outdoor"}},
		{ID: "home", Name: "Home", Layer: 1, Attrs: map[string]string{"type": "indoor"}},
	}

	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			tb.Fatalf("add node %s: %v", n.ID, err)
		}
	}

	edges := []graph.Edge{
		{Source: "cat", Target: "animal", Relation: graph.RelationIsA, Attrs: map[string]string{"weight": "2 - 10 kg"}},
		{Source: "dog", Target: "animal", Relation: graph.RelationIsA, Attrs: map[string]string{"weight": "5 - 40 kg"}},
		{Source: "lion", Target: "animal", Relation: graph.RelationIsA, Attrs: map[string]string{"weight": "150 - 250 kg"}},
		{Source: "cat", Target: "pet", Relation: graph.RelationIsA},
		{Source: "dog", Target: "pet", Relation: graph.RelationIsA},
		{Source: "labrador", Target: "dog", Relation: graph.RelationIsA},
		{Source: "animal", Target: "mammal", Relation: graph.RelationIsA},
		{Source: "cat", Target: "domestic", Relation: graph.RelationHasAttribute},
		{Source: "dog", Target: "domestic", Relation: graph.RelationHasAttribute},
		{Source: "vehicle", Target: "transportation", Relation: graph.RelationIsA},
		{Source: "car", Target: "vehicle", Relation: graph.RelationIsA},
		{Source: "truck", Target: "vehicle", Relation: graph.RelationIsA},
		{Source: "apple", Target: "food", Relation: graph.RelationIsA},
		{Source: "pizza", Target: "food", Relation: graph.RelationIsA},
		{Source: "park", Target: "place", Relation: graph.RelationIsA},
		{Source: "home", Target: "place", Relation: graph.RelationIsA},
	}

	for _, e := range edges {
		if _, err := g.AddEdge(e.Source, e.Target, e.Relation, e.Attrs); err != nil {
			tb.Fatalf("add edge %s -> %s: %v", e.Source, e.Target, err)
		}
	}

	return g
}
