package store

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ToFields converts a value into the field set of an update. Fields the
// value's encoding omits, such as nil pointers tagged omitempty, are absent.
func ToFields(v interface{}) (bson.M, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	fields := bson.M{}
	if err := bson.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return fields, nil
}

// IDFilter returns a filter matching the document with the given identifier
func IDFilter(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id}
}
