package memstore

import (
	"context"
	"time"

	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/repository"
)

type userRepo struct{ base }

func usernameTaken(d *data, username string, exceptID int64) bool {
	for _, u := range d.users {
		if u.Username == username && u.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *userRepo) Create(_ context.Context, u *model.User) error {
	return r.write(func(d *data, now time.Time) error {
		if usernameTaken(d, u.Username, 0) {
			return conflict(repository.ConstraintUsernameUnique)
		}
		u.ID = d.nextID(model.TableUsers)
		u.CreatedAt, u.UpdatedAt = now, now
		d.users[u.ID] = copyOf(u)
		return nil
	})
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	var out *model.User
	err := r.read(func(d *data) error {
		u, ok := d.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = copyOf(u)
		return nil
	})
	return out, err
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	var out *model.User
	err := r.read(func(d *data) error {
		for _, u := range d.users {
			if u.Username == username {
				out = copyOf(u)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *userRepo) filtered(d *data, f model.UserFilter) []*model.User {
	return sortedValues(d.users, func(u *model.User) bool {
		return matches(f.Search, u.Username, u.FullName, u.Email) &&
			(f.Role == nil || u.Role == *f.Role)
	}, func(a, b *model.User) bool { return a.Username < b.Username })
}

func (r *userRepo) List(_ context.Context, f model.UserFilter) ([]*model.User, error) {
	var out []*model.User
	err := r.read(func(d *data) error {
		out = paginate(r.filtered(d, f), f.Page)
		return nil
	})
	return out, err
}

func (r *userRepo) Count(_ context.Context, f model.UserFilter) (int, error) {
	var n int
	err := r.read(func(d *data) error {
		n = len(r.filtered(d, f))
		return nil
	})
	return n, err
}

func (r *userRepo) Update(_ context.Context, u *model.User) error {
	return r.write(func(d *data, now time.Time) error {
		cur, ok := d.users[u.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if usernameTaken(d, u.Username, u.ID) {
			return conflict(repository.ConstraintUsernameUnique)
		}
		u.CreatedAt, u.UpdatedAt = cur.CreatedAt, now
		d.users[u.ID] = copyOf(u)
		return nil
	})
}
