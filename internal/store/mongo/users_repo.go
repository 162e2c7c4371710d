package mongo

import (
	"context"
	"time"

	"github.com/learnhub/chathub/internal/auth"
	"github.com/learnhub/chathub/internal/domain/user"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type UsersRepo struct {
	coll *mongo.Collection

	// Observe, when set, wraps every store operation for metrics.
	Observe func(op string, fn func() error) error
}

func NewUsersRepo(coll *mongo.Collection) *UsersRepo {
	return &UsersRepo{coll: coll}
}

func (r *UsersRepo) do(op string, fn func() error) error {
	if r.Observe != nil {
		return r.Observe(op, fn)
	}
	return fn()
}

// Create inserts a new user with the default role, profile image and an
// active account. The unique email index turns a duplicate signup into
// ErrDuplicateEmail.
func (r *UsersRepo) Create(ctx context.Context, name, phone, email, passwordHash string) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		Name:         name,
		Phone:        phone,
		Email:        email,
		PasswordHash: passwordHash,
		ProfileImage: user.DefaultProfileImage,
		Role:         auth.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.do("users.create", func() error {
		result, err := r.coll.InsertOne(ctx, u)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrDuplicateEmail
			}
			return err
		}

		u.ID = result.InsertedID.(bson.ObjectID)
		return nil
	})
	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.do("users.get_by_email", func() error {
		err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&u)
		if err == mongo.ErrNoDocuments {
			return ErrUserNotFound
		}
		return err
	})
	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return user.User{}, ErrUserNotFound
	}

	var u user.User

	err = r.do("users.get_by_id", func() error {
		err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&u)
		if err == mongo.ErrNoDocuments {
			return ErrUserNotFound
		}
		return err
	})
	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

// Update applies the non-nil fields of upd to the user with the given email
// and returns the previous record, so callers can clean up a superseded
// profile image.
func (r *UsersRepo) Update(ctx context.Context, email string, upd user.Update) (user.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}

	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Phone != nil {
		set["phone"] = *upd.Phone
	}
	if upd.PasswordHash != nil {
		set["password"] = *upd.PasswordHash
	}
	if upd.ProfileImage != nil {
		set["profile_image"] = *upd.ProfileImage
	}

	var prev user.User

	err := r.do("users.update", func() error {
		err := r.coll.FindOneAndUpdate(ctx, bson.M{"email": email}, bson.M{"$set": set}).Decode(&prev)
		if err == mongo.ErrNoDocuments {
			return ErrUserNotFound
		}
		return err
	})
	if err != nil {
		return user.User{}, err
	}

	return prev, nil
}

func (r *UsersRepo) SetActive(ctx context.Context, email string, active bool) error {
	return r.do("users.set_active", func() error {
		result, err := r.coll.UpdateOne(
			ctx,
			bson.M{"email": email},
			bson.M{"$set": bson.M{"is_active": active, "updated_at": time.Now().UTC()}},
		)
		if err != nil {
			return err
		}
		if result.MatchedCount == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	var users []user.User

	err := r.do("users.list", func() error {
		cursor, err := r.coll.Find(ctx, bson.M{})
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		return cursor.All(ctx, &users)
	})
	if err != nil {
		return nil, err
	}

	return users, nil
}

func (r *UsersRepo) Count(ctx context.Context) (int64, error) {
	var n int64

	err := r.do("users.count", func() error {
		var err error
		n, err = r.coll.CountDocuments(ctx, bson.M{})
		return err
	})

	return n, err
}
