package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "day first", input: "25/12/1990", want: "1990-12-25"},
		{name: "iso", input: "1990-12-25", want: "1990-12-25"},
		{name: "surrounding spaces", input: " 01/02/2000 ", want: "2000-02-01"},
		{name: "month out of range", input: "01/13/2000", wantErr: true},
		{name: "garbage", input: "yesterday", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestDate_JSON(t *testing.T) {
	var body struct {
		BirthDate Date `json:"birth_date"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"birth_date":"07/03/1985"}`), &body))
	assert.Equal(t, "1985-03-07", body.BirthDate.String())

	out, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"birth_date":"1985-03-07"}`, string(out))

	require.NoError(t, json.Unmarshal([]byte(`{"birth_date":null}`), &body))
	assert.True(t, body.BirthDate.IsZero())

	out, err = json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"birth_date":null}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"birth_date":"31/02/1985"}`), &body))
	assert.Error(t, json.Unmarshal([]byte(`{"birth_date":19850307}`), &body))
}

func TestDate_SQL(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(1985, 3, 7, 15, 4, 5, 0, time.FixedZone("BRT", -3*3600))))
	assert.Equal(t, "1985-03-07", d.String())

	require.NoError(t, d.Scan([]byte("2001-09-11")))
	assert.Equal(t, "2001-09-11", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))

	v, err := d.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = NewDate(time.Date(2020, 1, 2, 23, 0, 0, 0, time.UTC)).Value()
	require.NoError(t, err)
	assert.Equal(t, "2020-01-02", v)
}
