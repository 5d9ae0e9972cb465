// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCmd  string
		wantArgs string
		wantErr  bool
	}{
		{
			name:    "simple command",
			input:   "leave",
			wantCmd: "leave",
		},
		{
			name:     "command with args",
			input:    "talk hello there",
			wantCmd:  "talk",
			wantArgs: "hello there",
		},
		{
			name:     "name is lowercased",
			input:    "CHOOSE 2",
			wantCmd:  "choose",
			wantArgs: "2",
		},
		{
			name:     "bare number chooses",
			input:    "  3 ",
			wantCmd:  "choose",
			wantArgs: "3",
		},
		{
			name:     "preserves internal arg whitespace",
			input:    "talk   hello    world",
			wantCmd:  "talk",
			wantArgs: "hello    world",
		},
		{
			name:     "tab separator",
			input:    "talk\thi",
			wantCmd:  "talk",
			wantArgs: "hi",
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
		{
			name:    "whitespace only",
			input:   "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCmd, got.Name)
			assert.Equal(t, tt.wantArgs, got.Args)
			assert.Equal(t, tt.input, got.Raw)
		})
	}
}
