package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringList_Scan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want StringList
	}{
		{"nil", nil, StringList{}},
		{"empty text", "", StringList{}},
		{"json array", `["A","B"]`, StringList{"A", "B"}},
		{"json bytes", []byte(`["A"]`), StringList{"A"}},
		{"json null", "null", StringList{}},
		{"plain text", "Jane Doe", StringList{"Jane Doe"}},
		{"json object", `{"a":1}`, StringList{`{"a":1}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l StringList
			require.NoError(t, l.Scan(tt.src))
			assert.Equal(t, tt.want, l)
		})
	}

	var l StringList
	assert.Error(t, l.Scan(42))
}

func TestStringList_Value(t *testing.T) {
	v, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	v, err = StringList{"Fiction", "Drama"}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `["Fiction","Drama"]`, v.(string))
}

func TestBookData_ToBook_Defaults(t *testing.T) {
	d := &BookData{Authors: []string{" ", ""}, Categories: []string{" Fiction "}}
	b := d.ToBook("ext-1")

	assert.Equal(t, "ext-1", b.ExternalID)
	assert.Equal(t, DefaultTitle, b.Title)
	assert.Equal(t, DefaultDescription, b.Description)
	assert.Equal(t, StringList{DefaultAuthor}, b.Authors)
	assert.Equal(t, StringList{"Fiction"}, b.Categories)
}

func TestBook_Summary(t *testing.T) {
	b := &Book{ID: 7, ExternalID: "x", Title: "T"}
	s := b.Summary()

	assert.Equal(t, 0.0, s.Rating)
	assert.Equal(t, int64(0), s.RatingsCount)
	assert.Nil(t, s.PageCount)

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, []any{}, m["authors"], "lists must serialise as [] not null")
	assert.Equal(t, []any{}, m["categories"])
	assert.NotContains(t, m, "price")

	rating, count := 4.5, int64(10)
	b.AverageRating, b.RatingsCount = &rating, &count
	s = b.Summary()
	assert.Equal(t, 4.5, s.Rating)
	assert.Equal(t, int64(10), s.RatingsCount)
}

func TestBookData_Summary_CarriesPrice(t *testing.T) {
	price := 9.99
	d := &BookData{ExternalID: "g1", Title: "Priced", Price: &price, Currency: "USD"}
	s := d.Summary()

	assert.Equal(t, int64(0), s.ID)
	assert.Equal(t, "g1", s.ExternalID)
	require.NotNil(t, s.Price)
	assert.Equal(t, 9.99, *s.Price)
	assert.Equal(t, "USD", s.Currency)
}

func TestParseShelf(t *testing.T) {
	for _, s := range []string{"reading", "wantToRead", "finished"} {
		got, ok := ParseShelf(s)
		assert.True(t, ok, s)
		assert.Equal(t, Shelf(s), got)
	}
	for _, s := range []string{"", "Reading", "wanttoread", "done"} {
		_, ok := ParseShelf(s)
		assert.False(t, ok, s)
	}
}

func TestGroupByShelf(t *testing.T) {
	got := GroupByShelf([]ShelfEntry{
		{ID: 1, Shelf: ShelfFinished},
		{ID: 2, Shelf: ShelfReading},
		{ID: 3, Shelf: ShelfFinished},
	})

	assert.Len(t, got.Reading, 1)
	assert.Empty(t, got.WantToRead)
	assert.NotNil(t, got.WantToRead)
	require.Len(t, got.Finished, 2)
	assert.Equal(t, int64(1), got.Finished[0].ID)
	assert.Equal(t, int64(3), got.Finished[1].ID)
}

func TestRankedGenres_MarshalJSON_KeepsOrder(t *testing.T) {
	r := RankedGenres{{"Zoology", 3}, {"Art", 2}, {`Quote "Me"`, 1}}
	raw, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"Zoology":3,"Art":2,"Quote \"Me\"":1}`, string(raw))

	raw, err = json.Marshal(RankedGenres(nil))
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(raw))
}

func TestNewPage(t *testing.T) {
	p := NewPage[int](nil, 41, 2, 20)
	assert.Equal(t, 3, p.Pages)
	assert.NotNil(t, p.Items)

	assert.Equal(t, 0, NewPage([]int{}, 0, 1, 20).Pages)
	assert.Equal(t, 1, NewPage([]int{1}, 20, 1, 20).Pages)
}

func TestUser_ResetTokenValid(t *testing.T) {
	now := time.Now()
	tok := "abc"
	future := now.Add(time.Minute)
	past := now.Add(-time.Minute)

	assert.True(t, (&User{ResetToken: &tok, ResetTokenExpires: &future}).ResetTokenValid("abc", now))
	assert.False(t, (&User{ResetToken: &tok, ResetTokenExpires: &future}).ResetTokenValid("xyz", now))
	assert.False(t, (&User{ResetToken: &tok, ResetTokenExpires: &past}).ResetTokenValid("abc", now))
	assert.False(t, (&User{}).ResetTokenValid("", now))
}
