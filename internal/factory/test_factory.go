package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/fhecity/internal/dependencies/mocks"
	"github.com/mcoot/fhecity/internal/fhe/sealed"
	"github.com/mcoot/fhecity/internal/services/auth"
	"github.com/mcoot/fhecity/internal/services/city"
	"github.com/mcoot/fhecity/internal/storage/memory"
	"github.com/mcoot/fhecity/internal/testutil"
)

// TestStoreID is the store identity used by test apps
const TestStoreID = "test-store"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	key, err := sealed.GenerateKey(mockRandom)
	if err != nil {
		panic(err)
	}
	engine, err := sealed.New(key, mockRandom)
	if err != nil {
		panic(err)
	}

	authCfg := auth.DefaultConfig()
	authCfg.BcryptCost = bcrypt.MinCost

	app := newWithDependencies(store, engine, mockClock, mockRandom, authCfg, city.Config{StoreID: TestStoreID}, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
