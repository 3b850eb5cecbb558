package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBot(t *testing.T) {
	t.Parallel()

	bot := NewBot(Submission{ID: "42", Complexity: 17.5})
	require.Equal(t, "Bot 42", bot.ID)
	require.Equal(t, 17.5, bot.Complexity)
	require.True(t, bot.IsBot())
	require.False(t, Submission{ID: "42"}.IsBot())
}

func TestSubmissionUnmarshalJSON(t *testing.T) {
	t.Parallel()

	t.Run("string id", func(t *testing.T) {
		var s Submission
		require.NoError(t, json.Unmarshal([]byte(`{"id":"abc","Complexity":12.5}`), &s))
		require.Equal(t, Submission{ID: "abc", Complexity: 12.5}, s)
	})

	t.Run("numeric id", func(t *testing.T) {
		var s Submission
		require.NoError(t, json.Unmarshal([]byte(`{"id": 7, "Complexity": 30}`), &s))
		require.Equal(t, Submission{ID: "7", Complexity: 30}, s)
	})

	t.Run("list of submissions", func(t *testing.T) {
		var subs []Submission
		require.NoError(t, json.Unmarshal([]byte(`[{"id":1,"Complexity":10},{"id":"2","Complexity":20}]`), &subs))
		require.Len(t, subs, 2)
		require.Equal(t, "1", subs[0].ID)
		require.Equal(t, "2", subs[1].ID)
	})

	invalid := map[string]string{
		"missing id":         `{"Complexity":1}`,
		"null id":            `{"id":null,"Complexity":1}`,
		"bool id":            `{"id":true,"Complexity":1}`,
		"missing complexity": `{"id":"a"}`,
		"null complexity":    `{"id":"a","Complexity":null}`,
		"string complexity":  `{"id":"a","Complexity":"12"}`,
		"object complexity":  `{"id":"a","Complexity":{}}`,
		"not an object":      `[1,2]`,
	}
	for name, payload := range invalid {
		t.Run(name, func(t *testing.T) {
			var s Submission
			err := json.Unmarshal([]byte(payload), &s)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
}

func TestSubmissionMarshalJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Submission{ID: "Bot 1", Complexity: 10})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"Bot 1","Complexity":10}`, string(data))
}

func TestGroup(t *testing.T) {
	t.Parallel()

	g := Group{
		NewBot(Submission{ID: "2", Complexity: 20}),
		{ID: "6", Complexity: 60},
		{ID: "5", Complexity: 50},
		{ID: "4", Complexity: 40},
	}

	require.Equal(t, []string{"Bot 2", "6", "5", "4"}, g.IDs())
	require.Equal(t, 1, g.Bots())

	data, err := json.Marshal(g)
	require.NoError(t, err)

	var decoded []Submission
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, GroupSize)
}

func TestNewBotCopy(t *testing.T) {
	t.Parallel()

	tmpl := Submission{ID: "a", Complexity: 5}
	require.Equal(t, NewBot(tmpl), NewBotCopy(tmpl, 1))
	require.Equal(t, Submission{ID: "Bot a (2)", Complexity: 5}, NewBotCopy(tmpl, 2))
	require.True(t, NewBotCopy(tmpl, 3).IsBot())
}

func TestDecodeSubmissionFields(t *testing.T) {
	t.Parallel()

	sub, err := DecodeSubmissionFields("7", []byte(`{"Complexity": 123, "Status": "APPROVED", "Pages": {"1": "x"}}`))
	require.NoError(t, err)
	require.Equal(t, Submission{ID: "7", Complexity: 123}, sub)

	for _, body := range []string{`{}`, `{"Complexity": "high"}`, `{"Complexity": null}`, `[1]`} {
		_, err := DecodeSubmissionFields("7", []byte(body))
		require.ErrorIs(t, err, ErrInvalidInput, body)
	}
}
