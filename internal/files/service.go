// Package files implements the media pipeline behind card covers, slides and
// user avatars: staging uploaded originals, deriving fixed-size WebP
// renditions, serving them back and cleaning them up.
package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/cardbox/service/internal/config"
	"github.com/cardbox/service/internal/storage"
	"github.com/cardbox/service/internal/transcode"
	"github.com/cardbox/service/internal/user"
)

const webpContentType = "image/webp"

// UserDirectory is the narrow view of the user service the avatar flow needs.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
	FindByAvatar(ctx context.Context, avatar string) (*user.User, error)
	UpdateAvatar(ctx context.Context, id, avatar string) (*user.User, error)
}

// Service coordinates the object store, the transcoder and the user directory.
// It is stateless; all persistent state lives in the buckets and the users
// table.
type Service struct {
	store storage.ObjectStore
	users UserDirectory

	tmpBucket string
	// cardProfiles are rendered by Process; avatarProfile only by UpdateAvatar.
	cardProfiles  []Profile
	avatarProfile Profile
}

// NewService creates a Service wired to the configured buckets.
func NewService(store storage.ObjectStore, users UserDirectory, cfg *config.Config) *Service {
	return &Service{
		store: store,
		users: users,

		tmpBucket: cfg.BucketTmp,
		cardProfiles: []Profile{
			{Name: ProfileCover, Bucket: cfg.BucketCovers, SizePx: CoverSize},
			{Name: ProfileSlide, Bucket: cfg.BucketSlides, SizePx: SlideSize},
		},
		avatarProfile: Profile{Name: ProfileAvatar, Bucket: cfg.BucketAvatars, SizePx: AvatarSize},
	}
}

// Upload stages raw upload bytes in the tmp bucket under a freshly generated
// logical name and returns that name. The bytes are stored unmodified;
// processing happens later, once the caller commits to using the file.
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error) {
	name := uuid.NewString() + "-" + sanitizeFilename(filename)
	if err := s.store.Put(ctx, s.tmpBucket, name, r, size, contentType); err != nil {
		return "", fmt.Errorf("stage upload %q: %w", name, err)
	}
	return name, nil
}

// Process fetches the staged original by logical name and renders every card
// profile (cover, slide) into its bucket under the normalized name. Profiles
// run concurrently and fail independently; if any profile fails the returned
// error is a *ProfileError naming the succeeded and failed profiles, so the
// caller can retry just the failed ones by passing their names in only.
//
// Processing the same name twice is safe: derivatives are a deterministic
// function of the staged bytes, so concurrent or repeated runs overwrite each
// object with identical content.
func (s *Service) Process(ctx context.Context, name string, only ...string) ([]string, error) {
	obj, _, err := s.store.Get(ctx, s.tmpBucket, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, fmt.Errorf("staged original %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch staged original %q: %w", name, err)
	}
	data, err := io.ReadAll(obj)
	_ = obj.Close()
	if err != nil {
		return nil, fmt.Errorf("read staged original %q: %w", name, err)
	}

	// Reject non-image input before touching any durable bucket.
	if _, err := transcode.Sniff(data); err != nil {
		return nil, fmt.Errorf("staged original %q: %w", name, ErrInvalidImage)
	}

	profiles := s.selectProfiles(only)
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no matching profiles: %v", only)
	}

	// Render profiles concurrently; they share only the read-only buffer.
	errs := make([]error, len(profiles))
	var wg sync.WaitGroup
	for i, p := range profiles {
		wg.Add(1)
		go func(i int, p Profile) {
			defer wg.Done()
			errs[i] = s.renderProfile(ctx, p, name, data)
		}(i, p)
	}
	wg.Wait()

	var produced []string
	perr := &ProfileError{}
	var merr *multierror.Error
	for i, p := range profiles {
		if errs[i] != nil {
			perr.Failed = append(perr.Failed, p.Name)
			merr = multierror.Append(merr, errs[i])
			continue
		}
		perr.Succeeded = append(perr.Succeeded, p.Name)
		produced = append(produced, p.Bucket+"/"+NormalizedName(name))
	}
	if len(perr.Failed) > 0 {
		perr.err = merr.ErrorOrNil()
		return nil, perr
	}
	return produced, nil
}

func (s *Service) renderProfile(ctx context.Context, p Profile, name string, data []byte) error {
	out, err := transcode.Fit(data, p.SizePx)
	if err != nil {
		return fmt.Errorf("render %s for %q: %w", p.Name, name, err)
	}
	key := NormalizedName(name)
	if err := s.store.Put(ctx, p.Bucket, key, bytes.NewReader(out), int64(len(out)), webpContentType); err != nil {
		return fmt.Errorf("store %s for %q: %w", p.Name, name, err)
	}
	return nil
}

func (s *Service) selectProfiles(only []string) []Profile {
	if len(only) == 0 {
		return s.cardProfiles
	}
	var out []Profile
	for _, p := range s.cardProfiles {
		for _, want := range only {
			if p.Name == want {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// OpenCover opens the stored cover derivative for streaming.
func (s *Service) OpenCover(ctx context.Context, name string) (io.ReadCloser, storage.ObjectInfo, error) {
	return s.open(ctx, s.profileBucket(ProfileCover), name)
}

// OpenSlide opens the stored slide derivative for streaming.
func (s *Service) OpenSlide(ctx context.Context, name string) (io.ReadCloser, storage.ObjectInfo, error) {
	return s.open(ctx, s.profileBucket(ProfileSlide), name)
}

// OpenAvatar opens the stored avatar for streaming. The name must be
// referenced by a user record; an unreferenced name is reported as not found
// even if an object with that key exists.
func (s *Service) OpenAvatar(ctx context.Context, name string) (io.ReadCloser, storage.ObjectInfo, error) {
	if _, err := s.users.FindByAvatar(ctx, name); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, storage.ObjectInfo{}, fmt.Errorf("avatar %q: %w", name, ErrNotFound)
		}
		return nil, storage.ObjectInfo{}, fmt.Errorf("look up avatar owner %q: %w", name, err)
	}
	return s.open(ctx, s.avatarProfile.Bucket, name)
}

func (s *Service) open(ctx context.Context, bucket, name string) (io.ReadCloser, storage.ObjectInfo, error) {
	rc, info, err := s.store.Get(ctx, bucket, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, storage.ObjectInfo{}, fmt.Errorf("%s/%s: %w", bucket, name, ErrNotFound)
		}
		return nil, storage.ObjectInfo{}, fmt.Errorf("open %s/%s: %w", bucket, name, err)
	}
	return rc, info, nil
}

// Remove deletes the card derivatives (cover and slide) for name. The name
// may be either the logical name or an already-normalized one. Deletes are
// best-effort per bucket: a missing key counts as success and one bucket
// failing does not block deletion from the others — failures are accumulated
// and reported together.
func (s *Service) Remove(ctx context.Context, name string) error {
	key := NormalizedName(name)
	var merr *multierror.Error
	for _, p := range s.cardProfiles {
		if err := s.store.Remove(ctx, p.Bucket, key); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("remove %s/%s: %w", p.Bucket, key, err))
		}
	}
	return merr.ErrorOrNil()
}

// UpdateAvatar replaces the user's avatar: render and store the new avatar
// object, re-point the user record at it, and only then delete the previous
// object. The ordering guarantees a crash mid-way never leaves the record
// pointing at a deleted object — at worst an unreferenced object is left
// behind.
func (s *Service) UpdateAvatar(ctx context.Context, userID, filename string, r io.Reader) (*user.User, error) {
	current, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, fmt.Errorf("avatar owner %q: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("load avatar owner %q: %w", userID, err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read avatar upload: %w", err)
	}
	out, err := transcode.Fit(data, s.avatarProfile.SizePx)
	if err != nil {
		if errors.Is(err, transcode.ErrInvalidImage) {
			return nil, fmt.Errorf("avatar upload: %w", ErrInvalidImage)
		}
		return nil, fmt.Errorf("render avatar: %w", err)
	}

	key := NormalizedName(uuid.NewString() + "-" + sanitizeFilename(filename))
	if err := s.store.Put(ctx, s.avatarProfile.Bucket, key, bytes.NewReader(out), int64(len(out)), webpContentType); err != nil {
		return nil, fmt.Errorf("store avatar %q: %w", key, err)
	}

	updated, err := s.users.UpdateAvatar(ctx, userID, key)
	if err != nil {
		// The new object stays; the record still references the old avatar.
		return nil, fmt.Errorf("update avatar record for %q: %w", userID, err)
	}

	// Previous avatar is unreferenced now. New accounts carry an external
	// placeholder URL, which is not ours to delete.
	if old := current.Avatar; old != "" && old != key && !strings.Contains(old, "://") {
		if err := s.store.Remove(ctx, s.avatarProfile.Bucket, old); err != nil {
			log.Printf("files: remove previous avatar %q: %v", old, err)
		}
	}
	return updated, nil
}

func (s *Service) profileBucket(name string) string {
	for _, p := range s.cardProfiles {
		if p.Name == name {
			return p.Bucket
		}
	}
	return ""
}

// sanitizeFilename strips path components and NUL bytes from a client-supplied
// filename so it is safe to embed in an object key.
func sanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)
	filename = strings.ReplaceAll(filename, "\x00", "")
	if filename == "." || filename == ".." || filename == "" || filename == "/" {
		filename = "unnamed"
	}
	return filename
}
