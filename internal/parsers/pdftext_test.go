package parsers

import (
	"testing"

	"github.com/ledongthuc/pdf"
)

func TestJoinRow(t *testing.T) {
	tests := []struct {
		name string
		runs []pdf.Text
		want string
	}{
		{
			name: "runs are ordered by x",
			runs: []pdf.Text{
				{X: 60, W: 20, S: "4.50"},
				{X: 0, W: 10, S: "05"},
				{X: 14, W: 15, S: "Jan"},
			},
			want: "05 Jan 4.50",
		},
		{
			name: "touching glyphs are joined",
			runs: []pdf.Text{
				{X: 0, W: 5, S: "C"},
				{X: 5.1, W: 25, S: "OFFEE"},
				{X: 35, W: 20, S: "SHOP"},
			},
			want: "COFFEE SHOP",
		},
		{
			name: "embedded spaces are collapsed",
			runs: []pdf.Text{
				{X: 0, W: 40, S: "SALARY  "},
				{X: 80, W: 20, S: " 2000.00"},
			},
			want: "SALARY 2000.00",
		},
		{
			name: "empty row",
			runs: nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinRow(tt.runs, 3); got != tt.want {
				t.Errorf("joinRow() = %q, want %q", got, tt.want)
			}
		})
	}
}
