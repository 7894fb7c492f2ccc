package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type partial struct {
	Name  *string   `bson:"name,omitempty"`
	Tags  *[]string `bson:"tags,omitempty"`
	Count *uint32   `bson:"count,omitempty"`
}

func TestToFields_OmitsAbsentFields(t *testing.T) {
	name := "B"
	fields, err := ToFields(partial{Name: &name})
	require.NoError(t, err)

	assert.Equal(t, bson.M{"name": "B"}, fields)
}

func TestToFields_Empty(t *testing.T) {
	fields, err := ToFields(partial{})
	require.NoError(t, err)

	assert.Empty(t, fields)
}

func TestToFields_KeepsZeroValuesThatArePresent(t *testing.T) {
	empty := []string{}
	var zero uint32
	fields, err := ToFields(partial{Tags: &empty, Count: &zero})
	require.NoError(t, err)

	assert.Len(t, fields, 2)
	assert.Contains(t, fields, "tags")
	assert.Contains(t, fields, "count")
}

func TestToFields_InvalidValue(t *testing.T) {
	_, err := ToFields("not a document")
	require.Error(t, err)

	assert.True(t, IsInvalidArgument(err))
}

func TestIDFilter(t *testing.T) {
	id := primitive.NewObjectID()

	assert.Equal(t, bson.M{"_id": id}, IDFilter(id))
}
