package sync_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"deskline.app/chatsync/internal/model"
	"deskline.app/chatsync/internal/session"
	"deskline.app/chatsync/internal/state"
	"deskline.app/chatsync/internal/sync"
)

var _ = Describe("Runner", func() {
	var (
		mock     *mockAPI
		store    *state.Store
		notifier *recordingNotifier
	)

	BeforeEach(func() {
		mock = &mockAPI{}
		store = state.NewStore()
		notifier = &recordingNotifier{}
	})

	newRunner := func(user session.User) *sync.Runner {
		engine := sync.NewEngine(mock, store, notifier, user)
		return sync.NewRunner(engine, sync.RunnerConfig{
			PollInterval:      20 * time.Millisecond,
			HeartbeatInterval: time.Hour,
		})
	}

	Describe("role gating", func() {
		It("denies customers without issuing any network call", func() {
			runner := newRunner(session.User{ID: "cust1", Role: model.RoleCustomer})

			Expect(runner.Run(context.Background())).To(Succeed())

			Expect(store.State().Error).To(Equal(sync.CustomerDeniedMessage))
			Expect(mock.calls.total()).To(BeZero())
		})
	})

	Describe("session lifecycle", func() {
		staff := session.User{ID: "u1", Role: model.RoleStaff}

		It("loads the directory, conversations and unread count, then goes offline on stop", func() {
			var statuses []model.StatusUpdate
			mock.updateStatusFn = func(_ context.Context, update model.StatusUpdate) error {
				statuses = append(statuses, update)
				return nil
			}
			mock.employeesFn = func(context.Context) ([]model.Employee, error) {
				return []model.Employee{{ID: "u2", Name: "Ann"}}, nil
			}
			mock.unreadCountFn = func(context.Context) (int, error) { return 3, nil }

			runner := newRunner(staff)
			done := make(chan error, 1)
			go func() { done <- runner.Run(context.Background()) }()

			Eventually(func() int { return mock.calls.get("unread_count") }).Should(BeNumerically(">=", 1))
			runner.Stop()
			Eventually(done).Should(Receive(BeNil()))

			s := store.State()
			Expect(s.Employees).To(HaveLen(1))
			Expect(s.UnreadCount).To(Equal(3))

			Expect(statuses).NotTo(BeEmpty())
			Expect(*statuses[0].IsOnline).To(BeTrue())
			Expect(*statuses[len(statuses)-1].IsOnline).To(BeFalse())
		})

		It("notifies the unread delta when the aggregate grows", func() {
			counts := make(chan int, 10)
			counts <- 0
			counts <- 0
			counts <- 2
			mock.unreadCountFn = func(context.Context) (int, error) {
				select {
				case n := <-counts:
					return n, nil
				default:
					return 2, nil
				}
			}

			runner := newRunner(staff)
			done := make(chan error, 1)
			go func() { done <- runner.Run(context.Background()) }()

			Eventually(notifier.all).Should(ContainElement("You have 2 new message(s)"))
			runner.Stop()
			Eventually(done).Should(Receive(BeNil()))

			// Baseline moved; no duplicate notification for the same count.
			Expect(notifier.all()).To(HaveLen(1))
		})

		It("skips refresh cycles while rate limited", func() {
			mock.rateLimitedUntil = time.Now().Add(time.Hour)

			runner := newRunner(staff)
			done := make(chan error, 1)
			go func() { done <- runner.Run(context.Background()) }()

			// Wait for the initial load, then allow several poll ticks to elapse.
			Eventually(func() int { return mock.calls.get("conversations") }).Should(Equal(1))
			Consistently(func() int { return mock.calls.get("conversations") }, 100*time.Millisecond).
				Should(Equal(1), "only the initial load should fetch conversations")

			runner.Stop()
			Eventually(done).Should(Receive(BeNil()))
		})

		It("returns the context error and goes offline when cancelled", func() {
			var lastStatus *model.StatusUpdate
			mock.updateStatusFn = func(_ context.Context, update model.StatusUpdate) error {
				lastStatus = &update
				return nil
			}

			ctx, cancel := context.WithCancel(context.Background())
			runner := newRunner(staff)
			done := make(chan error, 1)
			go func() { done <- runner.Run(ctx) }()

			Eventually(func() int { return mock.calls.get("employees") }).Should(Equal(1))
			cancel()
			Eventually(done).Should(Receive(MatchError(context.Canceled)))

			Expect(lastStatus).NotTo(BeNil())
			Expect(*lastStatus.IsOnline).To(BeFalse())
		})
	})
})
