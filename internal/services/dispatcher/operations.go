package dispatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fgeck/arkki/internal/config"
	"github.com/fgeck/arkki/internal/models"
	"github.com/fgeck/arkki/internal/services/pipeline"
)

const noneValue = "none"

func (s *Impl) defaults() models.Defaults {
	return config.StandardDefaults(s.env.Version, s.env.Home)
}

// load returns the configuration for req, creating the default file when
// none exists yet.
func (s *Impl) load(req models.Request) (*models.Configuration, string, error) {
	path := s.locator.Resolve(req.ConfigName)

	cfg, created, err := config.LoadOrCreate(path, s.defaults())
	if err != nil {
		return nil, path, err
	}
	if created {
		s.logger.Info().Str("config", path).Msg("created default configuration")
	}
	return cfg, path, nil
}

func (s *Impl) backup(ctx context.Context, req models.Request, args []string) error {
	cfg, path, err := s.load(req)
	if err != nil {
		return err
	}

	var target string
	if len(args) > 0 {
		target = args[0]
	} else if dir := cfg.Get(models.OptionOutput, ""); dir != "" {
		// A missing output directory must not turn into a file of that name.
		if err := pipeline.CheckOutputDir(dir); err != nil {
			return err
		}
		target = dir
	}
	if target == "" {
		if target, err = s.getwd(); err != nil {
			return fmt.Errorf("determining current directory: %w", err)
		}
	}

	outputPath := pipeline.ResolveOutput(target, cfg, config.ProfileName(req.ConfigName), s.env.Hostname, s.now())

	spec, err := s.builder.Build(cfg, outputPath, req.Verbose)
	if err != nil {
		return err
	}

	if req.DryRun {
		_, err = fmt.Fprintln(s.out, pipeline.CommandLine(spec))
		return err
	}

	s.logger.Info().
		Str("config", path).
		Str("root", cfg.Get(models.OptionRoot, "")).
		Str("output", outputPath).
		Msg("backing up")

	result, err := s.archiveSvc.Backup(ctx, spec)
	if err != nil {
		return err
	}
	if result.Error != nil {
		return result.Error
	}

	s.logger.Info().
		Str("output", result.OutputPath).
		Int64("size_bytes", result.SizeBytes).
		Dur("duration", result.Duration).
		Msg("backup written")

	return nil
}

func (s *Impl) initialize(req models.Request, args []string) error {
	name := req.ConfigName
	if len(args) > 0 {
		name = args[0]
	}
	path := s.locator.Resolve(name)

	if _, err := config.CreateDefault(path, s.defaults()); err != nil {
		return err
	}

	s.logger.Info().Str("config", path).Msg("configuration created")
	return nil
}

func (s *Impl) setOption(req models.Request, option string, args []string) error {
	value := ""
	if len(args) > 0 {
		value = args[0]
	}

	value, err := s.normalize(option, value)
	if err != nil {
		return err
	}
	if err := config.ValidateOption(option, value); err != nil {
		return err
	}

	cfg, path, err := s.load(req)
	if err != nil {
		return err
	}

	cfg.Set(option, value)
	if err := config.Persist(cfg, path); err != nil {
		return err
	}

	s.logger.Info().Str("config", path).Str(option, value).Msg("option updated")
	return nil
}

// normalize checks and canonicalizes a value before it is stored.
func (s *Impl) normalize(option, value string) (string, error) {
	switch option {
	case models.OptionRoot:
		if value == "" {
			wd, err := s.getwd()
			if err != nil {
				return "", fmt.Errorf("determining current directory: %w", err)
			}
			value = wd
		}
		abs, err := filepath.Abs(value)
		if err != nil {
			return "", err
		}
		info, err := os.Lstat(abs)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", pipeline.ErrInvalidRoot, abs, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return "", fmt.Errorf("%w: %s", pipeline.ErrSymlinkRoot, abs)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("%w: %s", pipeline.ErrInvalidRoot, abs)
		}
		return abs, nil

	case models.OptionOutput:
		if value == "" {
			return "", nil
		}
		abs, err := filepath.Abs(value)
		if err != nil {
			return "", err
		}
		if err := pipeline.CheckOutputDir(abs); err != nil {
			return "", err
		}
		return abs, nil

	case models.OptionCompress:
		switch value {
		case "", noneValue:
			return "", nil
		case models.CompressBzip2, models.CompressGzip:
			return value, nil
		}
		return "", fmt.Errorf("%w: compress must be one of: bzip2, gzip, none", ErrUsage)
	}

	return value, nil
}

func (s *Impl) exclude(req models.Request, args []string) error {
	remove := false
	if len(args) > 0 && args[0] == "-d" {
		remove = true
		args = args[1:]
		if len(args) == 0 {
			return fmt.Errorf("%w: exclude -d pattern...", ErrUsage)
		}
	}

	if !remove {
		for _, p := range args {
			if err := config.ValidatePattern(p); err != nil {
				return err
			}
			if !config.WellFormedGlob(p) {
				s.logger.Warn().Str("pattern", p).Msg("pattern has unbalanced brackets or braces; tar will match them literally")
			}
		}
	}

	cfg, path, err := s.load(req)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		for _, p := range cfg.Patterns() {
			if _, err := fmt.Fprintln(s.out, p); err != nil {
				return err
			}
		}
		return nil
	}

	changed := false
	for _, p := range args {
		var ok bool
		if remove {
			ok = cfg.RemovePattern(p)
		} else {
			ok = cfg.AddPattern(p)
		}
		if !ok {
			s.logger.Warn().Str("pattern", p).Bool("remove", remove).Msg("exclude patterns unchanged")
			continue
		}
		changed = true
	}

	if !changed {
		return nil
	}
	if err := config.Persist(cfg, path); err != nil {
		return err
	}

	s.logger.Info().Str("config", path).Strs("patterns", args).Bool("remove", remove).Msg("exclude patterns updated")
	return nil
}

func (s *Impl) list(ctx context.Context, req models.Request) error {
	cfg, _, err := s.load(req)
	if err != nil {
		return err
	}

	spec, err := s.builder.BuildList(cfg)
	if err != nil {
		return err
	}

	return s.archiveSvc.List(ctx, spec, s.out)
}

func (s *Impl) print(req models.Request, args []string) error {
	name := req.ConfigName
	if len(args) > 0 {
		name = args[0]
	}
	path := s.locator.Resolve(name)

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(s.out, config.Serialize(cfg))
	return err
}
