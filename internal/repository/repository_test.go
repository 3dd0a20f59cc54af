package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/query"
	"github.com/yukikurage/team-task-api/internal/utils"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type RepositoryTestSuite struct {
	suite.Suite
	db    *gorm.DB
	ctx   context.Context
	tasks *GormTaskRepository
	users *GormUserRepository
	teams *GormTeamRepository
}

func (s *RepositoryTestSuite) SetupTest() {
	var err error
	s.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	s.Require().NoError(err)

	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	s.Require().NoError(s.db.AutoMigrate(&models.Team{}, &models.User{}, &models.Task{}))

	s.ctx = context.Background()
	s.tasks = NewTaskRepository(s.db)
	s.users = NewUserRepository(s.db)
	s.teams = NewTeamRepository(s.db)
}

func (s *RepositoryTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.Close()
}

func (s *RepositoryTestSuite) createUser(name string, teamID *uint64) *models.User {
	user := &models.User{Username: name, Email: name + "@example.com", PasswordHash: "hash", Role: models.RoleUser, TeamID: teamID}
	s.Require().NoError(s.users.Create(s.ctx, user))
	return user
}

func (s *RepositoryTestSuite) createTask(title string, creator uint64, assignee *uint64, status models.TaskStatus) *models.Task {
	task := &models.Task{
		Title:        title,
		DueDate:      time.Now().UTC().Add(24 * time.Hour),
		CreatedByID:  creator,
		AssignedToID: assignee,
		Status:       status,
	}
	s.Require().NoError(s.tasks.Create(s.ctx, task))
	return task
}

func (s *RepositoryTestSuite) TestTaskFind_ExpandsRelationsAndPaginates() {
	alice := s.createUser("alice", nil)
	bob := s.createUser("bob", nil)
	for i := 0; i < 25; i++ {
		s.createTask("task", alice.ID, &bob.ID, models.TaskStatusPending)
	}

	p := query.Eq(models.TaskColumnCreatedBy, alice.ID)
	total, err := s.tasks.Count(s.ctx, p)
	s.Require().NoError(err)
	s.Equal(int64(25), total)

	page3, err := s.tasks.Find(s.ctx, p, utils.NewPaginationParams(3, 10), "id ASC")
	s.Require().NoError(err)
	s.Len(page3, 5)
	s.Require().NotNil(page3[0].CreatedBy)
	s.Equal("alice", page3[0].CreatedBy.Username)
	s.Require().NotNil(page3[0].AssignedTo)
	s.Equal("bob", page3[0].AssignedTo.Username)

	page4, err := s.tasks.Find(s.ctx, p, utils.NewPaginationParams(4, 10), "id ASC")
	s.Require().NoError(err)
	s.Empty(page4)
}

func (s *RepositoryTestSuite) TestTaskSave_MaintainsCompletion() {
	alice := s.createUser("alice", nil)
	task := s.createTask("ship", alice.ID, nil, models.TaskStatusPending)
	s.Nil(task.CompletedAt)

	task.SetStatus(models.TaskStatusCompleted, time.Now())
	s.Require().NoError(s.tasks.Save(s.ctx, task))

	stored, err := s.tasks.FindOne(s.ctx, query.Eq(models.TaskColumnID, task.ID))
	s.Require().NoError(err)
	s.NotNil(stored.CompletedAt)

	stored.SetStatus(models.TaskStatusPending, time.Now())
	s.Require().NoError(s.tasks.Save(s.ctx, stored))

	stored, err = s.tasks.FindOne(s.ctx, query.Eq(models.TaskColumnID, task.ID))
	s.Require().NoError(err)
	s.Nil(stored.CompletedAt)
}

func (s *RepositoryTestSuite) TestTaskDelete() {
	alice := s.createUser("alice", nil)
	task := s.createTask("gone", alice.ID, nil, models.TaskStatusPending)

	n, err := s.tasks.Delete(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	_, err = s.tasks.FindOne(s.ctx, query.Eq(models.TaskColumnID, task.ID))
	s.ErrorIs(err, gorm.ErrRecordNotFound)

	n, err = s.tasks.Delete(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Equal(int64(0), n)
}

func (s *RepositoryTestSuite) TestCountByStatus() {
	alice := s.createUser("alice", nil)
	s.createTask("a", alice.ID, nil, models.TaskStatusPending)
	s.createTask("b", alice.ID, nil, models.TaskStatusPending)
	s.createTask("c", alice.ID, nil, models.TaskStatusCompleted)

	counts, err := s.tasks.CountByStatus(s.ctx, query.All())
	s.Require().NoError(err)
	s.Equal(int64(2), counts[models.TaskStatusPending])
	s.Equal(int64(1), counts[models.TaskStatusCompleted])
	s.Equal(int64(0), counts[models.TaskStatusCancelled])
	s.Len(counts, 4)
}

func (s *RepositoryTestSuite) TestUserLookups() {
	team := &models.Team{Name: "core"}
	s.Require().NoError(s.teams.Create(s.ctx, team))
	alice := s.createUser("alice", &team.ID)
	bob := s.createUser("bob", &team.ID)
	s.createUser("carol", nil)

	ids, err := s.users.TeamMemberIDs(s.ctx, team.ID)
	s.Require().NoError(err)
	s.Equal([]uint64{alice.ID, bob.ID}, ids)

	found, err := s.users.FindConflicting(s.ctx, "nobody@example.com", "alice", 0)
	s.Require().NoError(err)
	s.Equal(alice.ID, found.ID)

	_, err = s.users.FindConflicting(s.ctx, "alice@example.com", "alice", alice.ID)
	s.ErrorIs(err, gorm.ErrRecordNotFound)

	s.Require().NoError(s.users.SetTeam(s.ctx, bob.ID, nil))
	ids, err = s.users.TeamMemberIDs(s.ctx, team.ID)
	s.Require().NoError(err)
	s.Equal([]uint64{alice.ID}, ids)

	at := time.Now().UTC().Truncate(time.Second)
	s.Require().NoError(s.users.TouchLastLogin(s.ctx, alice.ID, at))
	reloaded, err := s.users.FindByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Require().NotNil(reloaded.LastLogin)
	s.True(at.Equal(reloaded.LastLogin.UTC()))
}

func (s *RepositoryTestSuite) TestTeamDelete_DetachesMembers() {
	team := &models.Team{Name: "ops"}
	s.Require().NoError(s.teams.Create(s.ctx, team))
	alice := s.createUser("alice", &team.ID)

	withMembers, err := s.teams.FindByID(s.ctx, team.ID, true)
	s.Require().NoError(err)
	s.Len(withMembers.Members, 1)

	s.Require().NoError(s.teams.Delete(s.ctx, team.ID))

	reloaded, err := s.users.FindByID(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Nil(reloaded.TeamID)

	s.ErrorIs(s.teams.Delete(s.ctx, team.ID), gorm.ErrRecordNotFound)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func TestTaskCount_PropagatesStoreFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatal(err)
	}

	storeErr := errors.New("connection reset")
	mock.ExpectQuery("SELECT count").WillReturnError(storeErr)

	_, err = NewTaskRepository(db).Count(context.Background(), query.Eq(models.TaskColumnCreatedBy, 1))
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
