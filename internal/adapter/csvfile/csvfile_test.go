package csvfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "user-etl/internal/domain/user"
	apperrors "user-etl/pkg/errors"
)

func writeText(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestWriteRecords_QuotesSpecialCharacters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake_data.csv")
	signup := time.Date(2022, time.July, 1, 9, 30, 5, 0, time.UTC)

	err := WriteRecords(path, []domain.Record{
		{UserID: 1, Name: `Smith, "Doc" John`, Email: "doc@example.com", SignupDate: signup},
		{UserID: 2, Name: "Jane Roe", Email: "jane@example.com", SignupDate: signup},
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "user_id,name,email,signup_date", lines[0])
	assert.Equal(t, `1,"Smith, ""Doc"" John",doc@example.com,2022-07-01 09:30:05`, lines[1])

	records, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, `Smith, "Doc" John`, records[0].Name)
	assert.Equal(t, signup, records[0].SignupDate)
}

func TestWriteRecords_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake_data.csv")
	require.NoError(t, WriteRecords(path, nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "user_id,name,email,signup_date\n", string(raw))

	records, err := ReadRecords(path)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestWriteTransformed_AbsentDomainIsEmptyCell(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transformed.csv")
	day := time.Date(2021, time.January, 2, 0, 0, 0, 0, time.UTC)

	err := WriteTransformed(path, []domain.TransformedRecord{
		{UserID: 3, Name: "A", Email: "a@x.io", SignupDate: day, Domain: "x.io", HasDomain: true},
		{UserID: 4, Name: "B", Email: "b", SignupDate: day},
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"user_id,name,email,signup_date,domain\n3,A,a@x.io,2021-01-02,x.io\n4,B,b,2021-01-02,\n",
		string(raw))

	records, err := ReadTransformed(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].HasDomain)
	assert.False(t, records[1].HasDomain)
}

func TestReadRecords_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		kind    apperrors.Kind
		msg     string
	}{
		{
			name:    "empty file",
			content: "",
			kind:    apperrors.KindParse,
			msg:     "no header row",
		},
		{
			name:    "missing column",
			content: "user_id,name,email\n1,A,a@x.io\n",
			kind:    apperrors.KindParse,
			msg:     "signup_date",
		},
		{
			name:    "non numeric id",
			content: "user_id,name,email,signup_date\nx,A,a@x.io,2020-01-01 00:00:00\n",
			kind:    apperrors.KindParse,
			msg:     "line 2",
		},
		{
			name:    "bad date",
			content: "user_id,name,email,signup_date\n1,A,a@x.io,yesterday\n",
			kind:    apperrors.KindParse,
			msg:     "invalid signup_date",
		},
		{
			name:    "ragged row",
			content: "user_id,name,email,signup_date\n1,A,a@x.io\n",
			kind:    apperrors.KindParse,
			msg:     "read row",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRecords(writeText(t, tt.content))
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestReadRecords_MissingFile(t *testing.T) {
	_, err := ReadRecords(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindIO, apperrors.KindOf(err))
}

func TestReadRecords_StripsBOMAndReordersColumns(t *testing.T) {
	path := writeText(t, "\uFEFFemail,signup_date,user_id,name\nq@r.st,2020-02-29T10:00:00Z,5,Q\n")

	records, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(5), records[0].UserID)
	assert.Equal(t, "q@r.st", records[0].Email)
	assert.Equal(t, 29, records[0].SignupDate.Day())
}
