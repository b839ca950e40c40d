package models

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func parseSchema(t *testing.T, model interface{}) *schema.Schema {
	t.Helper()
	s, err := schema.Parse(model, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	return s
}

func constraintOf(t *testing.T, s *schema.Schema, field string) *schema.Constraint {
	t.Helper()
	rel, ok := s.Relationships.Relations[field]
	require.True(t, ok, "no relation %s on %s", field, s.Name)
	return rel.ParseConstraint()
}

func TestSchema_DeleteCascades(t *testing.T) {
	post := parseSchema(t, &Post{})
	comment := parseSchema(t, &Comment{})
	follow := parseSchema(t, &Follow{})

	tests := []struct {
		name   string
		schema *schema.Schema
		field  string
		want   string
	}{
		{"comments follow their post", post, "Comments", "CASCADE"},
		{"posts follow their author", post, "Author", "CASCADE"},
		{"groups are detached from posts", post, "Group", "SET NULL"},
		{"comments follow their author", comment, "Author", "CASCADE"},
		{"follows follow the follower", follow, "User", "CASCADE"},
		{"follows follow the author", follow, "Author", "CASCADE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := constraintOf(t, tt.schema, tt.field)
			require.NotNil(t, c)
			assert.Equal(t, tt.want, c.OnDelete)
		})
	}

	// The has-many side owns the comments.post_id key.
	assert.Nil(t, constraintOf(t, comment, "Post"))
	c := constraintOf(t, post, "Comments")
	require.NotNil(t, c)
	require.Len(t, c.ForeignKeys, 1)
	assert.Equal(t, "post_id", c.ForeignKeys[0].DBName)
}

func TestSchema_FollowRejectsSelfFollow(t *testing.T) {
	follow := parseSchema(t, &Follow{})

	checks := follow.ParseCheckConstraints()
	chk, ok := checks["chk_follow_not_self"]
	require.True(t, ok)
	assert.Equal(t, "user_id <> author_id", chk.Constraint)
}

func TestSchema_FollowPairIsUnique(t *testing.T) {
	follow := parseSchema(t, &Follow{})

	var pair *schema.Index
	leadingUserID := 0
	for _, idx := range follow.ParseIndexes() {
		if idx.Name == "idx_follow_user_author" {
			pair = idx
		}
		if len(idx.Fields) > 0 && idx.Fields[0].DBName == "user_id" {
			leadingUserID++
		}
	}
	require.NotNil(t, pair)
	assert.Equal(t, "UNIQUE", pair.Class)
	require.Len(t, pair.Fields, 2)
	assert.Equal(t, "user_id", pair.Fields[0].DBName)
	assert.Equal(t, "author_id", pair.Fields[1].DBName)
	assert.Equal(t, 1, leadingUserID, "user_id lookups are served by the pair index alone")
}
