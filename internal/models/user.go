package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// User is the profile document consulted for display-name resolution.
// Account management lives in a separate service.
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username string             `bson:"username" json:"username"`
	Email    string             `bson:"email" json:"email"`
}
