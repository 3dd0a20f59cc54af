package access

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/query"
	"gorm.io/gorm"
)

type fakeUsers struct {
	users map[uint64]*models.User
}

func (f *fakeUsers) FindByID(_ context.Context, id uint64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeUsers) TeamMemberIDs(_ context.Context, teamID uint64) ([]uint64, error) {
	var ids []uint64
	for id := uint64(1); id <= uint64(len(f.users)); id++ {
		if u, ok := f.users[id]; ok && u.TeamID != nil && *u.TeamID == teamID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func team(id uint64) *uint64 { return &id }

// users 1-3 are in team 10 (1 is the manager), 4 is in team 20, 5 has no team
func newFixture() *Resolver {
	return NewResolver(&fakeUsers{users: map[uint64]*models.User{
		1: {ID: 1, Role: models.RoleManager, TeamID: team(10)},
		2: {ID: 2, Role: models.RoleUser, TeamID: team(10)},
		3: {ID: 3, Role: models.RoleUser, TeamID: team(10)},
		4: {ID: 4, Role: models.RoleUser, TeamID: team(20)},
		5: {ID: 5, Role: models.RoleUser},
	}})
}

func task(creator uint64, assignee *uint64) *models.Task {
	return &models.Task{CreatedByID: creator, AssignedToID: assignee}
}

func TestResolveScope_User(t *testing.T) {
	r := newFixture()
	scope, err := r.ResolveScope(context.Background(), Caller{ID: 2, Role: models.RoleUser, TeamID: team(10)})
	require.NoError(t, err)

	assert.True(t, query.Match(scope, task(2, nil)))
	assert.True(t, query.Match(scope, task(4, team(2))))
	assert.False(t, query.Match(scope, task(3, team(3))))
	assert.False(t, query.Match(scope, task(4, nil)))
}

func TestResolveScope_Manager(t *testing.T) {
	r := newFixture()
	scope, err := r.ResolveScope(context.Background(), Caller{ID: 1, Role: models.RoleManager, TeamID: team(10)})
	require.NoError(t, err)

	assert.True(t, query.Match(scope, task(1, nil)))
	assert.True(t, query.Match(scope, task(4, team(3))))
	assert.False(t, query.Match(scope, task(4, team(4))))
	assert.False(t, query.Match(scope, task(2, nil)))
}

func TestResolveScope_ManagerWithoutTeam(t *testing.T) {
	r := newFixture()
	scope, err := r.ResolveScope(context.Background(), Caller{ID: 9, Role: models.RoleManager})
	require.NoError(t, err)

	assert.True(t, query.Match(scope, task(9, nil)))
	assert.False(t, query.Match(scope, task(5, team(5))))
}

func TestResolveScope_Admin(t *testing.T) {
	scope, err := newFixture().ResolveScope(context.Background(), Caller{ID: 99, Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.True(t, query.IsAll(scope))
}

// A caller-supplied OR filter must never widen the role scope
func TestScopeWithOrFilterStaysNarrow(t *testing.T) {
	r := newFixture()
	scope, err := r.ResolveScope(context.Background(), Caller{ID: 2, Role: models.RoleUser})
	require.NoError(t, err)

	filter := query.Or(query.Eq(models.TaskColumnCreatedBy, 4), query.Eq(models.TaskColumnAssignedTo, 4))
	combined := query.And(scope, filter)

	assert.False(t, query.Match(combined, task(4, team(4))))
	assert.True(t, query.Match(combined, task(4, team(2))))
	assert.True(t, query.Match(combined, task(2, team(4))))
}

func TestCanAssign(t *testing.T) {
	r := newFixture()
	ctx := context.Background()
	manager := Caller{ID: 1, Role: models.RoleManager, TeamID: team(10)}
	user := Caller{ID: 2, Role: models.RoleUser, TeamID: team(10)}
	admin := Caller{ID: 99, Role: models.RoleAdmin}

	u, err := r.CanAssign(ctx, manager, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), u.ID)

	_, err = r.CanAssign(ctx, manager, 4)
	assert.True(t, apierrors.Is(err, http.StatusForbidden))
	assert.EqualError(t, err, "You can only assign tasks to members of your team.")

	_, err = r.CanAssign(ctx, manager, 5)
	assert.True(t, apierrors.Is(err, http.StatusForbidden))

	_, err = r.CanAssign(ctx, manager, 404)
	assert.True(t, apierrors.Is(err, http.StatusNotFound))

	_, err = r.CanAssign(ctx, user, 2)
	assert.NoError(t, err)
	_, err = r.CanAssign(ctx, user, 3)
	assert.EqualError(t, err, "You can only assign tasks to yourself.")

	_, err = r.CanAssign(ctx, admin, 4)
	assert.NoError(t, err)
	_, err = r.CanAssign(ctx, admin, 404)
	assert.True(t, apierrors.Is(err, http.StatusNotFound))
}

func TestCanAccess(t *testing.T) {
	r := newFixture()
	ctx := context.Background()
	user := Caller{ID: 2, Role: models.RoleUser}

	assert.NoError(t, r.CanAccess(ctx, user, task(2, nil)))
	err := r.CanAccess(ctx, user, task(3, nil))
	assert.True(t, apierrors.Is(err, http.StatusForbidden))
}

func TestCallerKey(t *testing.T) {
	assert.Equal(t, "admin", Caller{ID: 1, Role: models.RoleAdmin}.Key())
	assert.Equal(t, "manager-7", Caller{ID: 7, Role: models.RoleManager}.Key())
	assert.Equal(t, "user-7", Caller{ID: 7, Role: models.RoleUser}.Key())
}
