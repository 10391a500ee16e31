package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDocumentsDirectArray(t *testing.T) {
	docs, err := normalizeDocuments([]byte(`[{"id":"a.pdf","name":"a.pdf","chunks":3}]`))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a.pdf", docs[0].ID)
	assert.Equal(t, 3, docs[0].Chunks)
}

func TestNormalizeDocumentsWrapper(t *testing.T) {
	docs, err := normalizeDocuments([]byte(`{"documents":[{"id":"a.pdf","name":"a.pdf"},{"id":"b.pdf","name":"b.pdf"}]}`))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b.pdf", docs[1].ID)
}

func TestNormalizeDocumentsUnknownKey(t *testing.T) {
	// No "documents" key: the first array-valued field wins.
	docs, err := normalizeDocuments([]byte(`{"status":"ok","items":[{"id":"x.pdf","name":"x.pdf"}]}`))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "x.pdf", docs[0].ID)
}

func TestNormalizeDocumentsPrefersDocumentsKey(t *testing.T) {
	raw := []byte(`{"other":[{"id":"wrong","name":"wrong"}],"documents":[{"id":"right","name":"right"}]}`)
	docs, err := normalizeDocuments(raw)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "right", docs[0].ID)
}

func TestNormalizeDocumentsEmptyArray(t *testing.T) {
	docs, err := normalizeDocuments([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestNormalizeDocumentsMalformed(t *testing.T) {
	for _, raw := range []string{`"hello"`, `{"status":"ok"}`, `42`, `not json`} {
		_, err := normalizeDocuments([]byte(raw))
		var malformed *MalformedResponseError
		assert.ErrorAs(t, err, &malformed, "input %q", raw)
	}
}
