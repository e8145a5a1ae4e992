package e2e

import (
	"fmt"

	"convo-core/contract"
	"convo-core/internal"
	"convo-core/moderation"
	"convo-core/repositories"
	"convo-core/search"
	"convo-core/services"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

// BaseSuite wires a full engine on throwaway stores. Scenarios exercise
// the service layer directly, exactly as a transport adapter would.
type BaseSuite struct {
	suite.Suite
	Config Config

	DB      *badger.DB
	Users   *repositories.UserRepository
	Service *services.ConversationService
	Index   *search.MessageIndex
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
}

// SetupTest rebuilds the whole stack so scenarios never share state.
func (s *BaseSuite) SetupTest() {
	dir := s.T().TempDir()
	log := internal.LoggerFromString("ERROR")

	db, err := badger.Open(badger.DefaultOptions(dir + "/badger").WithLoggingLevel(badger.ERROR))
	s.Require().NoError(err)
	s.DB = db

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(dir + "/bluge"))
	s.Require().NoError(err)

	moderator, err := moderation.NewModerator([]string{"badger"}, '*', log)
	s.Require().NoError(err)

	clock := contract.SystemClock{}
	s.Users = repositories.NewUserRepository(db, clock)
	conversations := repositories.NewConversationRepository(db, s.Users, clock, log)
	limit := s.Config.PageLimit
	messages := repositories.NewMessageRepository(db, clock, log, &limit)
	s.Index = search.NewMessageIndex(writer, log, 5, 10)
	s.Service = services.NewConversationService(conversations, messages, s.Index, moderator, log)
}

func (s *BaseSuite) TearDownTest() {
	if s.DB != nil {
		s.Require().NoError(s.DB.Close())
	}
}

// Step prints a colorized header so long scenario logs stay readable.
func (s *BaseSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// SeedUsers registers display names and returns the generated ids.
func (s *BaseSuite) SeedUsers(names ...string) []string {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		user, err := s.Users.CreateUser(name)
		s.Require().NoError(err)
		ids = append(ids, user.ID)
	}
	return ids
}
