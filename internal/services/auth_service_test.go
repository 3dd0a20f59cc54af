package services

import (
	"net/http"
	"strconv"

	"github.com/yukikurage/team-task-api/internal/access"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
)

func (s *ServiceTestSuite) register(username, email string, actor *access.Caller, role models.Role) (*models.User, error) {
	return s.auth.Register(s.ctx, actor, RegisterInput{
		Username: username,
		Email:    email,
		Password: "Passw0rd!",
		Role:     role,
	})
}

func (s *ServiceTestSuite) TestRegister() {
	user, err := s.register("alice", "Alice@Example.com", nil, models.RoleAdmin)
	s.Require().NoError(err)
	s.Equal("alice@example.com", user.Email)
	s.Equal(models.RoleUser, user.Role, "role is ignored for anonymous callers")
	s.NotEqual("Passw0rd!", user.PasswordHash)

	s.Require().Len(s.mail.sent, 1)
	s.Equal("alice@example.com", s.mail.sent[0].to)
	s.Equal("Welcome to Task Management System", s.mail.sent[0].subject)
	s.Contains(s.mail.sent[0].html, "Welcome, alice!")

	_, err = s.register("alice", "other@example.com", nil, "")
	s.ErrorIs(err, ErrUserExists)
	s.True(apierrors.Is(err, http.StatusBadRequest))

	_, err = s.register("other", "alice@example.com", nil, "")
	s.ErrorIs(err, ErrUserExists)
}

func (s *ServiceTestSuite) TestRegister_AdminMaySetRoleAndTeam() {
	admin := s.createUser("root", models.RoleAdmin, nil)
	team := s.createTeam("core")
	actor := callerOf(admin)

	user, err := s.auth.Register(s.ctx, &actor, RegisterInput{
		Username: "boss",
		Email:    "boss@example.com",
		Password: "Passw0rd!",
		Role:     models.RoleManager,
		TeamID:   &team.ID,
	})
	s.Require().NoError(err)
	s.Equal(models.RoleManager, user.Role)
	s.Equal(team.ID, *user.TeamID)

	missing := uint64(404)
	_, err = s.auth.Register(s.ctx, &actor, RegisterInput{Username: "x_y", Email: "x@example.com", Password: "Passw0rd!", TeamID: &missing})
	s.ErrorIs(err, ErrTeamNotFound)

	manager := callerOf(user)
	plain, err := s.auth.Register(s.ctx, &manager, RegisterInput{Username: "peon", Email: "peon@example.com", Password: "Passw0rd!", Role: models.RoleAdmin})
	s.Require().NoError(err)
	s.Equal(models.RoleUser, plain.Role)
}

func (s *ServiceTestSuite) TestLogin() {
	s.createUser("alice", models.RoleUser, nil)

	_, err := s.auth.Login(s.ctx, "alice@example.com", "wrong")
	s.True(apierrors.Is(err, http.StatusUnauthorized))
	s.EqualError(err, "Invalid email or password")

	_, err = s.auth.Login(s.ctx, "nobody@example.com", "Passw0rd!")
	s.EqualError(err, "Invalid email or password")

	result, err := s.auth.Login(s.ctx, " ALICE@example.com ", "Passw0rd!")
	s.Require().NoError(err)
	s.NotEmpty(result.Token)
	s.NotEmpty(result.Claims.ID)
	s.NotNil(result.User.LastLogin)

	stored, err := s.users.FindByID(s.ctx, result.User.ID)
	s.Require().NoError(err)
	s.NotNil(stored.LastLogin)
}

func (s *ServiceTestSuite) TestLogout_RevokesToken() {
	s.createUser("alice", models.RoleUser, nil)
	result, err := s.auth.Login(s.ctx, "alice@example.com", "Passw0rd!")
	s.Require().NoError(err)

	user, claims, err := s.auth.Authenticate(s.ctx, result.Token)
	s.Require().NoError(err)
	s.Equal(result.User.ID, user.ID)

	_, err = s.auth.GetProfile(s.ctx, user.ID)
	s.Require().NoError(err)
	s.True(s.mr.Exists("user:" + strconv.FormatUint(user.ID, 10) + ":profile"))

	s.auth.Logout(s.ctx, user.ID, claims)
	s.False(s.mr.Exists("user:" + strconv.FormatUint(user.ID, 10) + ":profile"))

	for i := 0; i < 3; i++ {
		_, _, err = s.auth.Authenticate(s.ctx, result.Token)
		s.ErrorIs(err, ErrTokenRevoked)
	}

	// a fresh login is unaffected
	again, err := s.auth.Login(s.ctx, "alice@example.com", "Passw0rd!")
	s.Require().NoError(err)
	_, _, err = s.auth.Authenticate(s.ctx, again.Token)
	s.NoError(err)
}

func (s *ServiceTestSuite) TestAuthenticate_Failures() {
	_, _, err := s.auth.Authenticate(s.ctx, "")
	s.ErrorIs(err, ErrTokenRequired)

	_, _, err = s.auth.Authenticate(s.ctx, "not-a-jwt")
	s.ErrorIs(err, ErrTokenInvalid)

	token, _, err := s.auth.Tokens.Issue(4242)
	s.Require().NoError(err)
	_, _, err = s.auth.Authenticate(s.ctx, token)
	s.ErrorIs(err, ErrTokenUser)
}

func (s *ServiceTestSuite) TestUpdateProfile() {
	alice := s.createUser("alice", models.RoleUser, nil)
	s.createUser("bob", models.RoleUser, nil)

	_, err := s.auth.GetProfile(s.ctx, alice.ID)
	s.Require().NoError(err)

	name := "alice_2"
	updated, err := s.auth.UpdateProfile(s.ctx, alice.ID, UpdateProfileInput{Username: &name})
	s.Require().NoError(err)
	s.Equal("alice_2", updated.Username)

	profile, err := s.auth.GetProfile(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Equal("alice_2", profile.Username)

	taken := "bob@example.com"
	_, err = s.auth.UpdateProfile(s.ctx, alice.ID, UpdateProfileInput{Email: &taken})
	s.ErrorIs(err, ErrProfileTaken)

	_, err = s.auth.GetProfile(s.ctx, 9999)
	s.ErrorIs(err, ErrUserNotFound)
}
