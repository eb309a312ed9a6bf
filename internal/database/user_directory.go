package database

import (
	"context"
	"errors"

	"ripple-social/internal/directory"
	"ripple-social/internal/models"
	"ripple-social/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// userDocument is the slice of the users collection the messaging core reads.
// The user service owns the full document.
type userDocument struct {
	ID       string `bson:"_id"`
	Username string `bson:"username"`
	FullName string `bson:"fullName"`
	Avatar   string `bson:"avatar"`
}

// UserDirectory resolves profiles from the shared users collection,
// implementing directory.Resolver.
type UserDirectory struct {
	users *mongo.Collection
}

func NewUserDirectory(db *MongoDB) *UserDirectory {
	return &UserDirectory{users: db.Users}
}

func (d *UserDirectory) Resolve(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var doc userDocument
	err := d.users.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, directory.NotFound(id)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to resolve profile", err)
	}

	return &models.Profile{
		ID:       id,
		Username: doc.Username,
		FullName: doc.FullName,
		Avatar:   doc.Avatar,
	}, nil
}
