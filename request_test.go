package xdccget

import (
	"errors"
	"testing"

	"github.com/opd-ai/xdccget/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePackages(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"single", "1", []string{"1"}, false},
		{"list", "1,2,3", []string{"1", "2", "3"}, false},
		{"spaces and hashes", "1,2, #3", []string{"1", "2", "3"}, false},
		{"duplicates kept", "5,5", []string{"5", "5"}, false},
		{"empty", "", nil, true},
		{"blank", "   ", nil, true},
		{"empty entry", "1,,2", nil, true},
		{"trailing comma", "1,2,", nil, true},
		{"bare hash", "#", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePackages(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRequestDefaults(t *testing.T) {
	req, err := NewRequest("", "", "", "Bot|XDCC", []string{"12"})
	require.NoError(t, err)

	assert.Equal(t, DefaultServer, req.Server)
	assert.Equal(t, DefaultChannel, req.Channel)
	assert.Equal(t, DefaultNickname, req.Nickname)
	assert.Equal(t, "Bot|XDCC", req.Bot)
	assert.Equal(t, []string{"12"}, req.Packages)
}

func TestNewRequestStripsChannelHash(t *testing.T) {
	req, err := NewRequest("irc.example.net:6667", "#anime", "me", "bot", []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, "anime", req.Channel)
}

func TestNewRequestCopiesPackages(t *testing.T) {
	packages := []string{"1", "2"}
	req, err := NewRequest("", "", "", "bot", packages)
	require.NoError(t, err)

	packages[0] = "99"
	assert.Equal(t, []string{"1", "2"}, req.Packages)
}

func TestNewRequestValidation(t *testing.T) {
	tests := []struct {
		name     string
		nickname string
		bot      string
		packages []string
	}{
		{"missing bot", "", "", []string{"1"}},
		{"missing packages", "", "bot", nil},
		{"empty package", "", "bot", []string{""}},
		{"space in bot", "", "some bot", []string{"1"}},
		{"space in nickname", "my nick", "bot", []string{"1"}},
		{"newline in package", "", "bot", []string{"1\r\nQUIT"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRequest("", "", tt.nickname, tt.bot, tt.packages)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestSummaryCounts(t *testing.T) {
	errA := errors.New("boom")
	summary := &Summary{
		Requested: 3,
		Results: []file.Result{
			{ID: 1, FileName: "a"},
			{ID: 2, FileName: "b", Err: errA},
			{ID: 3, FileName: "c"},
		},
	}

	assert.Equal(t, 2, summary.Completed())
	assert.Equal(t, 1, summary.Failed())
	assert.ErrorIs(t, summary.Err(), errA)
	assert.Contains(t, summary.Err().Error(), "transfer 2 (b)")

	empty := &Summary{}
	assert.NoError(t, empty.Err())
	assert.Equal(t, 0, empty.Completed())
}
