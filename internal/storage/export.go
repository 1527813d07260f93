package storage

import (
	"encoding/json"
	"io"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/problem"
)

type ExportData struct {
	RunMetadata
	States   [][]float64 `json:"states"`
	Controls [][]float64 `json:"controls"`
	Costs    []float64   `json:"costs"`
}

// ExportJSON writes meta and the full trajectory of res as one JSON document.
func ExportJSON(w io.Writer, meta RunMetadata, res problem.Result) error {
	data := ExportData{
		RunMetadata: meta,
		States:      make([][]float64, len(res.States)),
		Controls:    make([][]float64, len(res.Controls)),
		Costs:       res.Costs,
	}
	for i, x := range res.States {
		data.States[i] = mat.Col(nil, 0, x)
	}
	for i, u := range res.Controls {
		data.Controls[i] = mat.Col(nil, 0, u)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
