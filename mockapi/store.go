package mockapi

import (
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/mfi-console/identity"
	"github.com/jrsteele09/mfi-console/resources"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrBadCredential = errors.New("invalid email or password")
	ErrTransition    = errors.New("status transition not allowed")
)

// user is an identity plus the fields only the server knows.
type user struct {
	identity.Identity
	PasswordHash string
}

// Store is the mock API's in-memory data set. It is safe for concurrent use.
type Store struct {
	lock   sync.RWMutex
	nextID int

	users         map[identity.ID]*user
	emailIDs      map[string]identity.ID
	groups        map[identity.ID]resources.Group
	loans         map[identity.ID]resources.Loan
	savings       map[identity.ID]resources.SavingsAccount
	transactions  map[identity.ID]resources.Transaction
	notifications map[identity.ID]resources.Notification
}

func NewStore() *Store {
	return &Store{
		nextID:        100,
		users:         make(map[identity.ID]*user),
		emailIDs:      make(map[string]identity.ID),
		groups:        make(map[identity.ID]resources.Group),
		loans:         make(map[identity.ID]resources.Loan),
		savings:       make(map[identity.ID]resources.SavingsAccount),
		transactions:  make(map[identity.ID]resources.Transaction),
		notifications: make(map[identity.ID]resources.Notification),
	}
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) newIDLocked() identity.ID {
	s.nextID++
	return identity.ID(strconv.Itoa(s.nextID))
}

// AddUser creates a user with a hashed password. An empty id is assigned.
func (s *Store) AddUser(id identity.Identity, password string) (identity.Identity, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return identity.Identity{}, errors.Wrap(err, "failed to hash password")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	email := normaliseEmail(id.Email)
	if _, ok := s.emailIDs[email]; ok {
		return identity.Identity{}, errors.Wrapf(ErrEmailTaken, "add user %s", email)
	}
	if id.ID == "" {
		id.ID = s.newIDLocked()
	}
	id.Email = email
	s.users[id.ID] = &user{Identity: id.Clone(), PasswordHash: hash}
	s.emailIDs[email] = id.ID
	return id.Clone(), nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Store) Authenticate(email, password string) (identity.Identity, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	id, ok := s.emailIDs[normaliseEmail(email)]
	if !ok {
		return identity.Identity{}, ErrBadCredential
	}
	u := s.users[id]
	if !CheckPasswordHash(password, u.PasswordHash) {
		return identity.Identity{}, ErrBadCredential
	}
	return u.Identity.Clone(), nil
}

func (s *Store) User(id identity.ID) (identity.Identity, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return identity.Identity{}, errors.Wrapf(ErrNotFound, "user %s", id)
	}
	return u.Identity.Clone(), nil
}

func (s *Store) UpdateProfile(id identity.ID, patch identity.ProfilePatch) (identity.Identity, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	u, ok := s.users[id]
	if !ok {
		return identity.Identity{}, errors.Wrapf(ErrNotFound, "user %s", id)
	}
	u.Identity = patch.ApplyTo(u.Identity)
	return u.Identity.Clone(), nil
}

// AddGroup creates a group. An empty id is assigned.
func (s *Store) AddGroup(g resources.Group) resources.Group {
	s.lock.Lock()
	defer s.lock.Unlock()
	if g.ID == "" {
		g.ID = s.newIDLocked()
	}
	s.groups[g.ID] = g
	return g
}

// Join adds userID to groupID, keeping the user's memberships in join order.
func (s *Store) Join(userID, groupID identity.ID, joinedAt time.Time) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return errors.Wrapf(ErrNotFound, "user %s", userID)
	}
	g, ok := s.groups[groupID]
	if !ok {
		return errors.Wrapf(ErrNotFound, "group %s", groupID)
	}
	if u.HasGroup(groupID) {
		return nil
	}
	u.Groups = append(u.Groups, identity.GroupMembership{GroupID: groupID, GroupName: g.Name, JoinedAt: joinedAt})
	g.MemberCount++
	s.groups[groupID] = g
	return nil
}

// GroupsOf returns the groups userID belongs to in membership order.
func (s *Store) GroupsOf(userID identity.ID) ([]resources.Group, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "user %s", userID)
	}
	out := make([]resources.Group, 0, len(u.Groups))
	for _, m := range u.Groups {
		if g, ok := s.groups[m.GroupID]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *Store) AddLoan(l resources.Loan) resources.Loan {
	s.lock.Lock()
	defer s.lock.Unlock()
	if l.ID == "" {
		l.ID = s.newIDLocked()
	}
	s.loans[l.ID] = l
	return l
}

func (s *Store) AddSavings(a resources.SavingsAccount) resources.SavingsAccount {
	s.lock.Lock()
	defer s.lock.Unlock()
	if a.ID == "" {
		a.ID = s.newIDLocked()
	}
	s.savings[a.ID] = a
	return a
}

func (s *Store) AddTransaction(t resources.Transaction) resources.Transaction {
	s.lock.Lock()
	defer s.lock.Unlock()
	if t.ID == "" {
		t.ID = s.newIDLocked()
	}
	s.transactions[t.ID] = t
	return t
}

func (s *Store) AddNotification(n resources.Notification) resources.Notification {
	s.lock.Lock()
	defer s.lock.Unlock()
	if n.ID == "" {
		n.ID = s.newIDLocked()
	}
	s.notifications[n.ID] = n
	return n
}

func (s *Store) Loans(groups []identity.ID) []resources.Loan {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return filterByGroup(s.loans, groups, func(l resources.Loan) identity.ID { return l.GroupID })
}

func (s *Store) Savings(groups []identity.ID) []resources.SavingsAccount {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return filterByGroup(s.savings, groups, func(a resources.SavingsAccount) identity.ID { return a.GroupID })
}

func (s *Store) Transactions(groups []identity.ID) []resources.Transaction {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return filterByGroup(s.transactions, groups, func(t resources.Transaction) identity.ID { return t.GroupID })
}

func (s *Store) Notifications(groups []identity.ID) []resources.Notification {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return filterByGroup(s.notifications, groups, func(n resources.Notification) identity.ID { return n.GroupID })
}

// Members lists users belonging to any of groups, one row per membership.
func (s *Store) Members(groups []identity.ID) []resources.Member {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var out []resources.Member
	for _, u := range s.users {
		for _, m := range u.Groups {
			if !slices.Contains(groups, m.GroupID) {
				continue
			}
			out = append(out, resources.Member{
				ID:       u.ID,
				Name:     u.Name,
				Email:    u.Email,
				Phone:    u.Phone,
				Role:     u.Role,
				GroupID:  m.GroupID,
				Status:   "active",
				JoinedAt: m.JoinedAt,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GroupID != out[j].GroupID {
			return idLess(out[i].GroupID, out[j].GroupID)
		}
		return idLess(out[i].ID, out[j].ID)
	})
	return out
}

func (s *Store) Loan(id identity.ID) (resources.Loan, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	l, ok := s.loans[id]
	if !ok {
		return resources.Loan{}, errors.Wrapf(ErrNotFound, "loan %s", id)
	}
	return l, nil
}

func (s *Store) Transaction(id identity.ID) (resources.Transaction, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	t, ok := s.transactions[id]
	if !ok {
		return resources.Transaction{}, errors.Wrapf(ErrNotFound, "transaction %s", id)
	}
	return t, nil
}

func (s *Store) Notification(id identity.ID) (resources.Notification, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	n, ok := s.notifications[id]
	if !ok {
		return resources.Notification{}, errors.Wrapf(ErrNotFound, "notification %s", id)
	}
	return n, nil
}

// SetLoanStatus applies a loan status transition.
func (s *Store) SetLoanStatus(id identity.ID, status resources.LoanStatus, at time.Time) (resources.Loan, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	l, ok := s.loans[id]
	if !ok {
		return resources.Loan{}, errors.Wrapf(ErrNotFound, "loan %s", id)
	}
	if !resources.CanTransitionLoan(l.Status, status) {
		return resources.Loan{}, errors.Wrapf(ErrTransition, "loan %s cannot move from %s to %s", id, l.Status, status)
	}
	l.Status = status
	l.UpdatedAt = at
	s.loans[id] = l
	return l, nil
}

func (s *Store) SetTransactionStatus(id identity.ID, status resources.TransactionStatus) (resources.Transaction, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	t, ok := s.transactions[id]
	if !ok {
		return resources.Transaction{}, errors.Wrapf(ErrNotFound, "transaction %s", id)
	}
	if !resources.CanTransitionTransaction(t.Status, status) {
		return resources.Transaction{}, errors.Wrapf(ErrTransition, "transaction %s cannot move from %s to %s", id, t.Status, status)
	}
	t.Status = status
	s.transactions[id] = t
	return t, nil
}

func (s *Store) SetNotificationRead(id identity.ID, read bool) (resources.Notification, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return resources.Notification{}, errors.Wrapf(ErrNotFound, "notification %s", id)
	}
	n.Read = read
	s.notifications[id] = n
	return n, nil
}

func filterByGroup[T any](items map[identity.ID]T, groups []identity.ID, groupOf func(T) identity.ID) []T {
	ids := make([]identity.ID, 0, len(items))
	for id, item := range items {
		if slices.Contains(groups, groupOf(item)) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return idLess(ids[i], ids[j]) })

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, items[id])
	}
	return out
}

// idLess orders numeric ids numerically and everything else lexically.
func idLess(a, b identity.ID) bool {
	ai, aerr := strconv.Atoi(a.String())
	bi, berr := strconv.Atoi(b.String())
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}
