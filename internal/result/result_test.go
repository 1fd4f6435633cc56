package result

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRow(t *testing.T) {
	r := New("alice")
	assert.Equal(t, Processing, r.Status)

	r.Status = Success
	r.TaxID = "123456789"
	row := r.Row()
	require.Len(t, row, len(Columns))
	assert.Equal(t, []string{"alice", "Success", "", "123456789", "", ""}, row)
}

func TestStatusJSON(t *testing.T) {
	b, err := json.Marshal(Record{Identifier: "bob", Status: WrongCredentials})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"status":"Wrong Credentials"`)
	assert.Equal(t, "Status(?)", Status(99).String())
}

func TestTally(t *testing.T) {
	counts := Tally([]Record{{Status: Success}, {Status: Success}, {Status: SystemError}})
	assert.Equal(t, 2, counts[Success])
	assert.Equal(t, 1, counts[SystemError])
	assert.Zero(t, counts[UnknownError])
}
