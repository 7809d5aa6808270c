package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/librarian/internal/shared/types"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// ProviderID names this provider in item references
const ProviderID = "local"

type sanitizer struct {
	plain *bluemonday.Policy
	rich  *bluemonday.Policy
}

func newSanitizer() *sanitizer {
	return &sanitizer{
		plain: bluemonday.StrictPolicy(),
		rich:  bluemonday.UGCPolicy(),
	}
}

// ItemMetadata builds the metadata document for id. Descriptor text is
// sanitized since descriptors come from removable media.
func (s *Store) ItemMetadata(ctx context.Context, id string) (types.ItemMetadata, error) {
	meta, err := s.LoadMetadata(ctx, id)
	if err != nil {
		return types.ItemMetadata{}, err
	}

	download, _ := meta.RequireSize(types.MetaDownloadSize)
	disk, _ := meta.RequireSize(types.MetaDiskSize)

	item := types.ItemMetadata{
		ID:              id,
		Name:            s.sanitizer.plain.Sanitize(meta.GetOr(types.MetaName, id)),
		Summary:         s.sanitizer.plain.Sanitize(meta.GetOr(types.MetaSummary, "")),
		Description:     s.sanitizer.rich.Sanitize(meta.GetOr(types.MetaDescription, "")),
		Version:         meta.GetOr(types.MetaVersion, ""),
		Platform:        meta.Platform(s.platform),
		DownloadSize:    download,
		DiskSize:        disk,
		RequiresNetwork: meta.Bool(types.MetaRequiresNetwork),
		Website:         meta.GetOr(types.MetaWebsite, ""),
		Providers: []types.ProviderRef{{
			Provider:      ProviderID,
			ProviderAppID: id,
			StoreURL:      meta.GetOr(types.MetaWebsite, ""),
		}},
		Images: s.images(id, meta),
	}
	return item, nil
}

func (s *Store) images(id string, meta types.AppMetadata) []types.Image {
	images := make([]types.Image, 0, 2)

	portrait, hasPortrait := meta.Get(types.MetaImageURL)
	landscape, hasLandscape := meta.Get(types.MetaImageLandscapeURL)
	if s.baseURL != "" {
		if !hasPortrait {
			portrait, hasPortrait = fmt.Sprintf("%s/images/portrait/%s.jpg", s.baseURL, id), true
		}
		if !hasLandscape {
			landscape, hasLandscape = fmt.Sprintf("%s/images/landscape/%s.jpg", s.baseURL, id), true
		}
	}

	if hasPortrait {
		images = append(images, types.Image{ImageType: types.ImagePortrait, URL: portrait, Source: ProviderID})
	}
	if hasLandscape {
		images = append(images, types.Image{ImageType: types.ImageLandscape, URL: landscape, Source: ProviderID})
	}
	return images
}

// ProviderItems lists one item per catalog entry with readable metadata
func (s *Store) ProviderItems(ctx context.Context) []types.ProviderItem {
	ids := s.ListAppIDs(ctx)
	items := make([]types.ProviderItem, 0, len(ids))
	for _, id := range ids {
		item, err := s.ProviderItem(ctx, id)
		if err != nil {
			s.metrics.IncCatalogSkipped()
			s.logger.Warn("Skipping catalog entry", zap.String("app_id", id), zap.Error(err))
			continue
		}
		items = append(items, item)
	}
	return items
}

// ProviderItem returns the listing entry of id
func (s *Store) ProviderItem(ctx context.Context, id string) (types.ProviderItem, error) {
	meta, err := s.LoadMetadata(ctx, id)
	if err != nil {
		return types.ProviderItem{}, err
	}
	return types.ProviderItem{
		ID:       id,
		Name:     s.sanitizer.plain.Sanitize(meta.GetOr(types.MetaName, id)),
		Provider: ProviderID,
		AppType:  types.AppTypeGame,
	}, nil
}

// LaunchOptions returns how to start id. A descriptor without an
// executable yields no options. Glob executables expand against the
// installed tree, one option per match.
func (s *Store) LaunchOptions(ctx context.Context, id string) ([]types.LaunchOption, error) {
	meta, err := s.LoadMetadata(ctx, id)
	if err != nil {
		return nil, err
	}

	executable, ok := meta.Get(types.MetaExecutable)
	if !ok {
		return []types.LaunchOption{}, nil
	}

	base, ok := s.ResolveInstallPath(ctx, id)
	if !ok {
		if base, err = s.AppDir(ctx, id); err != nil {
			return nil, err
		}
	}

	executable = filepath.ToSlash(strings.TrimPrefix(executable, "/"))
	targets := []string{executable}
	if hasGlobMeta(executable) {
		matches, err := doublestar.Glob(os.DirFS(base), executable, doublestar.WithFilesOnly())
		if err != nil {
			return nil, types.NewError(types.CodeInvalidMetadata,
				fmt.Sprintf("executable pattern %q: %v", executable, err), types.ErrInvalidMetadata)
		}
		targets = matches
	}

	name := meta.GetOr(types.MetaName, id)
	arguments := meta.GetOr(types.MetaArguments, "")
	options := make([]types.LaunchOption, 0, len(targets))
	for _, target := range targets {
		options = append(options, types.LaunchOption{
			Description:      name,
			Executable:       filepath.Join(base, filepath.FromSlash(target)),
			Arguments:        arguments,
			WorkingDirectory: base,
			Environment:      []string{},
			LaunchType:       types.LaunchTypeGame,
			HardwareTags:     []string{},
		})
	}
	return options, nil
}

func hasGlobMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
