package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ihop/internal/protocol"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	require.NoError(t, err)
	return v
}

func TestCommandSchema_IDsMatchTags(t *testing.T) {
	for _, name := range []string{"start", "dialect", "run", "stop"} {
		data, err := commandSchema(name)
		require.NoError(t, err)

		var doc map[string]any
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.Equal(t, protocol.SchemaTag(name), doc["$id"])
	}

	_, err := commandSchema("nope")
	assert.Error(t, err)
}

func TestValidate_Requests(t *testing.T) {
	codec := protocol.NewCodec(newValidator(t))

	_, err := protocol.ToRequest(codec, protocol.StartV1)
	assert.NoError(t, err)

	_, err = protocol.ToRequest(codec, protocol.Dialect{Dialect: "https://json-schema.org/draft/2020-12/schema"})
	assert.NoError(t, err)

	_, err = protocol.ToRequest(codec, protocol.Run{Seq: 1, Case: map[string]any{
		"description": "a case",
		"schema":      map[string]any{"type": "integer"},
		"tests": []any{
			map[string]any{"description": "one", "instance": 1},
		},
	}})
	assert.NoError(t, err)

	_, err = protocol.ToRequest(codec, protocol.StopCommand)
	assert.NoError(t, err)
}

func TestValidate_RunRequestWithAnswersRejected(t *testing.T) {
	codec := protocol.NewCodec(newValidator(t))

	_, err := protocol.ToRequest(codec, protocol.Run{Seq: 1, Case: map[string]any{
		"description": "leaky",
		"schema":      true,
		"tests": []any{
			map[string]any{"description": "one", "instance": 1, "valid": true},
		},
	}})
	require.Error(t, err)
	assert.True(t, protocol.IsSchemaError(err))
}

func TestValidate_BadStartRequest(t *testing.T) {
	codec := protocol.NewCodec(newValidator(t))
	_, err := protocol.ToRequest(codec, protocol.Start{Version: 0})
	require.Error(t, err)
	assert.True(t, protocol.IsSchemaError(err))
}

func TestValidate_Responses(t *testing.T) {
	codec := protocol.NewCodec(newValidator(t))

	started, err := protocol.FromResponse(codec, protocol.StartV1,
		[]byte(`{"implementation": {"name": "x", "language": "go"}, "ready": true, "version": 1}`))
	require.NoError(t, err)
	assert.Equal(t, "x", started.Name())

	_, err = protocol.FromResponse(codec, protocol.StartV1, []byte(`{"ready": true, "version": 1}`))
	assert.True(t, protocol.IsSchemaError(err))

	ok, err := protocol.FromResponse(codec, protocol.Dialect{Dialect: "d"}, []byte(`{"ok": true}`))
	require.NoError(t, err)
	assert.Equal(t, protocol.OK, ok)

	_, err = protocol.FromResponse(codec, protocol.Run{Seq: 1}, []byte(`{"seq": 1, "results": [{"valid": true}]}`))
	assert.NoError(t, err)

	_, err = protocol.FromResponse(codec, protocol.Run{Seq: 1}, []byte(`{"seq": 1, "errored": true, "context": {}}`))
	assert.NoError(t, err)

	_, err = protocol.FromResponse(codec, protocol.Run{Seq: 1}, []byte(`{"seq": "one", "results": []}`))
	assert.True(t, protocol.IsSchemaError(err))
}

func TestValidate_RunResponseBothFlags(t *testing.T) {
	codec := protocol.NewCodec(newValidator(t))
	_, err := protocol.FromResponse(codec, protocol.Run{Seq: 1},
		[]byte(`{"seq": 1, "errored": true, "skipped": true, "context": {}}`))
	require.Error(t, err)
	assert.True(t, protocol.IsSchemaError(err) || protocol.IsMalformedResponse(err))
}
