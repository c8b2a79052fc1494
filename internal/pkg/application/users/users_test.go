package users

import (
	"context"
	"testing"

	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/storage"
	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/matryer/is"
)

type fakeUserStore struct {
	users map[string]types.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]types.User{}}
}

func (f *fakeUserStore) AddUser(ctx context.Context, user types.User) error {
	for _, existing := range f.users {
		if existing.Username == user.Username {
			return storage.ErrAlreadyExists
		}
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) UpdateUser(ctx context.Context, user types.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return storage.ErrNoRows
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) DeleteUser(ctx context.Context, userID string) error {
	if _, ok := f.users[userID]; !ok {
		return storage.ErrNoRows
	}
	delete(f.users, userID)
	return nil
}

func (f *fakeUserStore) GetUser(ctx context.Context, conditions ...storage.ConditionFunc) (types.User, error) {
	c := &storage.Condition{}
	for _, condition := range conditions {
		c = condition(c)
	}

	for _, user := range f.users {
		if c.UserID != "" && user.ID == c.UserID {
			return user, nil
		}
		if c.Username != "" && user.Username == c.Username {
			return user, nil
		}
	}

	return types.User{}, storage.ErrNoRows
}

func (f *fakeUserStore) QueryUsers(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.User], error) {
	var data []types.User
	for _, u := range f.users {
		data = append(data, u)
	}
	return types.Collection[types.User]{Data: data, Count: uint64(len(data))}, nil
}

func TestRegisterAndLogin(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	svc := New(ctx, newFakeUserStore())

	user, err := svc.Register(ctx, "Maria", "hunter22", types.RoleOperator)
	is.NoErr(err)
	is.Equal(user.Username, "maria")
	is.True(user.PasswordHash != "hunter22")

	loggedIn, pair, err := svc.Login(ctx, "MARIA", "hunter22")
	is.NoErr(err)
	is.Equal(loggedIn.ID, user.ID)
	is.True(pair.AccessToken != "")
	is.True(pair.RefreshToken != "")
	is.True(pair.AccessToken != pair.RefreshToken)

	token, err := jwt.ParseString(pair.AccessToken, jwt.WithVerify(false), jwt.WithValidate(false))
	is.NoErr(err)
	is.Equal(token.Subject(), user.ID)

	claims, err := token.AsMap(ctx)
	is.NoErr(err)
	is.Equal(claims["role"], "operator")
	is.Equal(claims["username"], "maria")
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	svc := New(ctx, newFakeUserStore())
	_, err := svc.Register(ctx, "maria", "hunter22", types.RoleViewer)
	is.NoErr(err)

	_, _, err = svc.Login(ctx, "maria", "wrong")
	is.Equal(err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody", "hunter22")
	is.Equal(err, ErrInvalidCredentials)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	svc := New(ctx, newFakeUserStore())
	_, err := svc.Register(ctx, "maria", "hunter22", types.RoleViewer)
	is.NoErr(err)

	_, pair, err := svc.Login(ctx, "maria", "hunter22")
	is.NoErr(err)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	is.Equal(err, ErrInvalidToken)

	fresh, err := svc.Refresh(ctx, pair.RefreshToken)
	is.NoErr(err)
	is.True(fresh.AccessToken != "")
}

func TestDuplicateUsernameIsRejected(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	svc := New(ctx, newFakeUserStore())
	_, err := svc.Register(ctx, "maria", "hunter22", types.RoleViewer)
	is.NoErr(err)

	_, err = svc.Register(ctx, "Maria", "different", types.RoleViewer)
	is.Equal(err, ErrAlreadyExists)
}
