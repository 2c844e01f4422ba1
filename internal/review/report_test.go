package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeReports(t *testing.T) {
	tests := []struct {
		name      string
		fragments []string
		want      string
	}{
		{
			name:      "joins fragments with a blank line",
			fragments: []string{"a", "b"},
			want:      "a\n\nb",
		},
		{
			name:      "drops empty fragments",
			fragments: []string{"", "a", "   ", "b", ""},
			want:      "a\n\nb",
		},
		{
			name:      "all empty yields empty",
			fragments: []string{"", "  \n "},
			want:      "",
		},
		{
			name:      "trims surrounding whitespace",
			fragments: []string{"  a \n", "\nb  "},
			want:      "a\n\nb",
		},
		{
			name:      "no fragments",
			fragments: nil,
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeReports(tt.fragments...))
		})
	}
}

func TestMergeReportsAssociativity(t *testing.T) {
	a, b, c := "【内容修改】\nx", "", "【时间轴调整】\ny"

	left := MergeReports(MergeReports(a, b), c)
	right := MergeReports(a, MergeReports(b, c))
	flat := MergeReports(a, b, c)

	assert.Equal(t, flat, left)
	assert.Equal(t, flat, right)
}
