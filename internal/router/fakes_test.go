package router_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/anonto42/yatube/backend/internal/models"
	"github.com/anonto42/yatube/backend/internal/repositories"
	"github.com/anonto42/yatube/backend/internal/storage"
	"github.com/anonto42/yatube/backend/pkg/firebase"
	"github.com/labstack/echo/v4"
)

// memStore is an in-memory stand-in for every repository.
type memStore struct {
	mu       sync.Mutex
	clock    time.Time
	users    []*models.User
	groups   []*models.Group
	posts    []*models.Post
	comments []*models.Comment
	follows  map[[2]uint]bool
}

func newMemStore() *memStore {
	return &memStore{
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		follows: map[[2]uint]bool{},
	}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func (s *memStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username {
			return fmt.Errorf("duplicate username %q", user.Username)
		}
	}
	user.ID = uint(len(s.users) + 1)
	user.CreatedAt = s.tick()
	cp := *user
	s.users = append(s.users, &cp)
	return nil
}

func (s *memStore) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userByID(id)
}

func (s *memStore) userByID(id uint) (*models.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *memStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *memStore) GetUserByFirebaseUID(_ context.Context, uid string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.FirebaseUID != nil && *u.FirebaseUID == uid {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *memStore) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, u := range s.users {
		if u.ID == user.ID {
			cp := *user
			s.users[i] = &cp
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (s *memStore) CreateGroup(_ context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	group.ID = uint(len(s.groups) + 1)
	cp := *group
	s.groups = append(s.groups, &cp)
	return nil
}

func (s *memStore) GetGroupByID(_ context.Context, id uint) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groupByID(id)
}

func (s *memStore) groupByID(id uint) (*models.Group, error) {
	for _, g := range s.groups {
		if g.ID == id {
			cp := *g
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *memStore) GetGroupBySlug(_ context.Context, slug string) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if g.Slug == slug {
			cp := *g
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *memStore) GetGroups(context.Context) ([]models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	groups := make([]models.Group, 0, len(s.groups))
	for _, g := range s.groups {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Title < groups[j].Title })
	return groups, nil
}

func (s *memStore) CreatePost(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	post.ID = uint(len(s.posts) + 1)
	post.CreatedAt = s.tick()
	cp := *post
	s.posts = append(s.posts, &cp)
	return nil
}

func (s *memStore) GetPostByID(_ context.Context, id uint) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.posts {
		if p.ID == id {
			return s.hydrate(*p), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *memStore) hydrate(p models.Post) *models.Post {
	if author, err := s.userByID(p.AuthorID); err == nil {
		p.Author = *author
	}
	p.Group = nil
	if p.GroupID != nil {
		if group, err := s.groupByID(*p.GroupID); err == nil {
			p.Group = group
		}
	}
	return &p
}

func (s *memStore) UpdatePost(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.posts {
		if p.ID == post.ID {
			p.Text = post.Text
			p.GroupID = post.GroupID
			p.Image = post.Image
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (s *memStore) matching(filter repositories.PostFilter) []models.Post {
	var out []models.Post
	for i := len(s.posts) - 1; i >= 0; i-- {
		p := s.posts[i]
		if filter.GroupID != nil && (p.GroupID == nil || *p.GroupID != *filter.GroupID) {
			continue
		}
		if filter.AuthorID != nil && p.AuthorID != *filter.AuthorID {
			continue
		}
		if filter.FollowerID != nil && !s.follows[[2]uint{*filter.FollowerID, p.AuthorID}] {
			continue
		}
		out = append(out, *s.hydrate(*p))
	}
	return out
}

func (s *memStore) CountPosts(_ context.Context, filter repositories.PostFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.matching(filter))), nil
}

func (s *memStore) ListPosts(_ context.Context, filter repositories.PostFilter, offset, limit int) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.matching(filter)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s *memStore) CreateComment(_ context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment.ID = uint(len(s.comments) + 1)
	comment.CreatedAt = s.tick()
	cp := *comment
	s.comments = append(s.comments, &cp)
	return nil
}

func (s *memStore) GetCommentsByPostID(_ context.Context, postID uint) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Comment
	for _, c := range s.comments {
		if c.PostID == postID {
			cp := *c
			if author, err := s.userByID(c.AuthorID); err == nil {
				cp.Author = *author
			}
			out = append(out, cp)
		}
	}
	return out, nil
}

func (s *memStore) CreateFollow(_ context.Context, follow *models.Follow) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]uint{follow.UserID, follow.AuthorID}
	if s.follows[key] {
		return false, nil
	}
	s.follows[key] = true
	return true, nil
}

func (s *memStore) DeleteFollow(_ context.Context, userID, authorID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.follows, [2]uint{userID, authorID})
	return nil
}

func (s *memStore) IsFollowing(_ context.Context, userID, authorID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.follows[[2]uint{userID, authorID}], nil
}

func (s *memStore) GetFollowersCount(_ context.Context, authorID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key := range s.follows {
		if key[1] == authorID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) GetFollowingCount(_ context.Context, userID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key := range s.follows {
		if key[0] == userID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) followCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.follows)
}

func (s *memStore) postCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts)
}

func (s *memStore) commentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.comments)
}

// memImages keeps uploaded images in memory.
type memImages struct {
	mu    sync.Mutex
	files map[string]memImage
}

type memImage struct {
	content     []byte
	contentType string
}

func newMemImages() *memImages {
	return &memImages{files: map[string]memImage{}}
}

func (m *memImages) Save(_ context.Context, filename, contentType string, r io.Reader) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := storage.NewKey(fmt.Sprintf("img%d", len(m.files)+1), filename, contentType)
	m.files[key] = memImage{content: content, contentType: contentType}
	return key, nil
}

func (m *memImages) Open(_ context.Context, key string) (*storage.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[key]
	if !ok {
		return nil, storage.ErrImageNotFound
	}
	return storage.NewImage(f.content, f.contentType), nil
}

// recordingRenderer remembers the last template rendered and its data.
type recordingRenderer struct {
	mu    sync.Mutex
	name  string
	data  echo.Map
	calls int
}

func (r *recordingRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.name = name
	r.data, _ = data.(echo.Map)
	_, err := io.WriteString(w, "template:"+name)
	return err
}

func (r *recordingRenderer) last() (string, echo.Map) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name, r.data
}

func (r *recordingRenderer) renders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// memPageCache never expires entries.
type memPageCache struct {
	mu    sync.Mutex
	pages map[string][]byte
}

func (m *memPageCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page, ok := m.pages[key]
	return page, ok, nil
}

func (m *memPageCache) Set(_ context.Context, key string, page []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pages == nil {
		m.pages = map[string][]byte{}
	}
	m.pages[key] = append([]byte(nil), page...)
	return nil
}

// fakeVerifier accepts the tokens it knows.
type fakeVerifier map[string]firebase.Identity

func (f fakeVerifier) VerifyIdentity(_ context.Context, idToken string) (*firebase.Identity, error) {
	identity, ok := f[idToken]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return &identity, nil
}
