package ppo

import (
	"testing"

	"golang.org/x/exp/rand"
)

func TestBatchCount(t *testing.T) {
	four := 4

	tests := []struct {
		name        string
		epochLength int
		epochs      int
		batchSize   int
		effective   *int
		nominal     int
		wantBatches int
		wantLength  int
	}{
		{"plain", 129, 4, 64, nil, 16, 8, 129},
		{"effective agents", 129, 4, 64, &four, 16, 32, 32},
		{"single pass", 11, 1, 1, nil, 2, 10, 11},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			hp := DefaultHParams()
			hp.EpochLength = test.epochLength
			hp.OptimizationEpochs = test.epochs
			hp.OptimizationBatchSize = test.batchSize
			hp.EffectiveNumAgents = test.effective

			n, length, err := BatchCount(hp, test.nominal)
			if err != nil {
				t.Fatal(err)
			}
			if n != test.wantBatches {
				t.Errorf("expected %d batches but got %d", test.wantBatches, n)
			}
			if length != test.wantLength {
				t.Errorf("expected epoch length %d but got %d",
					test.wantLength, length)
			}
		})
	}
}

func TestBatchCountNonPositive(t *testing.T) {
	hp := DefaultHParams()
	hp.EpochLength = 3
	hp.OptimizationEpochs = 1
	hp.OptimizationBatchSize = 4

	_, _, err := BatchCount(hp, 1)
	if !IsConfigError(err) {
		t.Errorf("expected config error but got %v", err)
	}

	hp = DefaultHParams()
	many := 1000
	hp.EffectiveNumAgents = &many
	if _, _, err := BatchCount(hp, 1); !IsConfigError(err) {
		t.Errorf("expected config error but got %v", err)
	}
}

func TestIndexTable(t *testing.T) {
	const epochLength, epochs, batchSize, numBatches = 129, 4, 64, 8

	table, err := IndexTable(rand.New(rand.NewSource(1)), epochLength, epochs,
		batchSize, numBatches)
	if err != nil {
		t.Fatal(err)
	}

	if len(table) != numBatches {
		t.Fatalf("expected %d rows but got %d", numBatches, len(table))
	}
	for i, row := range table {
		if len(row) != batchSize {
			t.Errorf("row %d: expected %d indices but got %d", i, batchSize,
				len(row))
		}
		for _, index := range row {
			if index < 0 || index >= epochLength-1 {
				t.Errorf("row %d: index %d out of range", i, index)
			}
		}
	}

	// Each pass of 128 indices spans two rows and visits every time step
	for pass := 0; pass < epochs; pass++ {
		seen := make(map[int]int)
		for _, row := range table[2*pass : 2*pass+2] {
			for _, index := range row {
				seen[index]++
			}
		}
		for index := 0; index < epochLength-1; index++ {
			if seen[index] != 1 {
				t.Errorf("pass %d: index %d seen %d times", pass, index,
					seen[index])
			}
		}
	}
}

func TestIndexTableSeeded(t *testing.T) {
	first, err := IndexTable(rand.New(rand.NewSource(3)), 20, 3, 4, 14)
	if err != nil {
		t.Fatal(err)
	}
	second, err := IndexTable(rand.New(rand.NewSource(3)), 20, 3, 4, 14)
	if err != nil {
		t.Fatal(err)
	}
	for i := range first {
		for j := range first[i] {
			if first[i][j] != second[i][j] {
				t.Fatalf("tables differ at (%d, %d)", i, j)
			}
		}
	}
}

func TestIndexTableTruncates(t *testing.T) {
	// 2 passes over 10 indices fill 6 batches of 3, with 2 indices left
	table, err := IndexTable(rand.New(rand.NewSource(1)), 11, 2, 3, 6)
	if err != nil {
		t.Fatal(err)
	}
	if len(table) != 6 {
		t.Errorf("expected 6 rows but got %d", len(table))
	}

	_, err = IndexTable(rand.New(rand.NewSource(1)), 11, 2, 3, 7)
	if !IsConfigError(err) {
		t.Errorf("expected config error but got %v", err)
	}
}

func TestIndexTableEffectiveAgentsShortfall(t *testing.T) {
	// The effective agent example: 32 steps give 4 passes of 31 indices,
	// which cannot fill 32 batches of 64
	_, err := IndexTable(rand.New(rand.NewSource(1)), 32, 4, 64, 32)
	if !IsConfigError(err) {
		t.Errorf("expected config error but got %v", err)
	}
}
