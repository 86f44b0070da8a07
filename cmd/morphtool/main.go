// morphtool is a CLI utility for inspecting and editing stored morph records.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/morphutil/internal/attrstore"
	"github.com/Faultbox/morphutil/internal/config"
	"github.com/Faultbox/morphutil/internal/logger"
	"github.com/Faultbox/morphutil/internal/mesh"
	"github.com/Faultbox/morphutil/internal/morphctl"
	"github.com/Faultbox/morphutil/pkg/formats"
	"github.com/Faultbox/morphutil/pkg/math"
	"github.com/Faultbox/morphutil/pkg/morph"
)

// errUsage means the subcommand already printed its usage line.
var errUsage = errors.New("usage")

func main() {
	config.ParseFlags()
	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	if command == "help" || command == "-h" || command == "--help" {
		printUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err = run(cfg, command, args[1:])
	logger.Close()
	switch {
	case errors.Is(err, errUsage):
		os.Exit(1)
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, command string, args []string) error {
	switch command {
	case "info":
		return cmdInfo(cfg, args)
	case "list", "ls":
		return cmdList(cfg, args)
	case "import":
		return cmdImport(cfg, args)
	case "export":
		return cmdExport(cfg, args)
	case "weight":
		return cmdWeight(cfg, args)
	case "rename":
		return cmdRename(cfg, args)
	case "remove", "rm":
		return cmdRemove(cfg, args)
	case "zero":
		return cmdZero(cfg, args)
	case "blend":
		return cmdBlend(cfg, args)
	case "cleanup":
		return cmdCleanup(cfg, args)
	case "rebase":
		return cmdRebase(cfg, args)
	case "config-init":
		return cmdConfigInit(cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return errUsage
	}
}

func printUsage() {
	fmt.Println(`morphtool - morph target record utility

Usage:
  morphtool [global options] <command> [options]

Commands:
  info <file.mtd>                     Show record contents
  list                                List shapes with a stored record
  import [-name shape] <shape-uuid> <file.mtd>
                                      Store a record for a shape
  export <shape-uuid> <file.mtd>      Write a shape's stored record to a file
  weight <file.mtd> <target> <w>      Set a target weight (clamped to [0, 1])
  rename <file.mtd> <target> <name>   Rename a target
  remove <file.mtd> <target>          Delete a target
  zero <file.mtd>                     Set every weight to 0
  blend <file.mtd>                    Print the blended positions of moved vertices
  cleanup <file.mtd>                  Merge duplicate rest vertices
  rebase <file.mtd> <live.mtd>        Follow a rigid move to the rest shape of live.mtd
  config-init [path]                  Write the effective config as YAML

Targets are given by id or by name.

Global options:
  -config <path>   Config file
  -db <path>       SQLite attribute store
  -charset <name>  Target name encoding (utf-8, shift_jis, euc-kr)
  -max-depth <n>   Spatial index maximum depth (cleanup)
  -min-leaf <n>    Spatial index minimum leaf size (cleanup)
  -no-rebase       Disable rebase
  -debug           Debug logging

Examples:
  morphtool info face.mtd
  morphtool -db scene.db import -name Face 0b7c... face.mtd
  morphtool weight face.mtd blink 0.5`)
}

func usage(line string) error {
	fmt.Fprintln(os.Stderr, "Usage: morphtool "+line)
	return errUsage
}

func formatOptions(cfg *config.Config) formats.Options {
	return formats.Options{Names: cfg.Charset()}
}

func openDB(cfg *config.Config) (*attrstore.Store, error) {
	db, err := attrstore.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("opening attribute store: %w", err)
	}
	return db, nil
}

// loadStore reads a record file into a target store.
func loadStore(cfg *config.Config, path string) (*morph.Store, error) {
	md, err := formats.ParseMorphDataFileWith(path, formatOptions(cfg))
	if err != nil {
		return nil, err
	}
	s := morph.NewStore()
	if err := morphctl.ToStore(md, s); err != nil {
		return nil, err
	}
	return s, nil
}

func saveStore(cfg *config.Config, path string, s *morph.Store) error {
	return formats.WriteMorphDataFileWith(path, morphctl.FromStore(s), formatOptions(cfg))
}

// findTarget resolves a target by id, falling back to its name.
func findTarget(s *morph.Store, ref string) (int, error) {
	if id, err := strconv.Atoi(ref); err == nil {
		if id >= 0 && id < s.Len() {
			return id, nil
		}
	}
	for id := 0; id < s.Len(); id++ {
		if s.Name(id) == ref {
			return id, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", morph.ErrTargetNotFound, ref)
}

// parseInterleaved parses fs flags found anywhere in args and returns the
// positional arguments in order. Everything after "--" is positional.
func parseInterleaved(fs *flag.FlagSet, args []string) []string {
	var pos []string
	for {
		fs.Parse(args)
		rest := fs.Args()
		if len(rest) == 0 {
			return pos
		}
		if len(args) > len(rest) && args[len(args)-len(rest)-1] == "--" {
			return append(pos, rest...)
		}
		pos = append(pos, rest[0])
		args = rest[1:]
	}
}

func cmdInfo(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return usage("info <file.mtd>")
	}

	s, err := loadStore(cfg, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("File:     %s\n", args[0])
	fmt.Printf("Vertices: %d\n", s.BaseLen())
	fmt.Printf("Targets:  %d\n", s.Len())
	if s.Len() == 0 {
		return nil
	}
	fmt.Println()
	fmt.Printf("  %-4s %-32s %8s %7s\n", "ID", "NAME", "VERTICES", "WEIGHT")
	for id, t := range s.Targets() {
		fmt.Printf("  %-4d %-32s %8d %7.3f\n", id, t.Name, t.Len(), t.Weight)
	}
	return nil
}

func cmdList(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	fs.Parse(args)

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.List(attrstore.MorphStreamID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s  %-24s %8d bytes  %s\n", e.Shape, e.ShapeName, e.Size, e.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(os.Stderr, "\n(%d shapes)\n", len(entries))
	return nil
}

func cmdImport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	name := fs.String("name", "", "Shape name to record")
	pos := parseInterleaved(fs, args)

	if len(pos) < 2 {
		return usage("import [-name shape] <shape-uuid> <file.mtd>")
	}
	shape, err := uuid.Parse(pos[0])
	if err != nil {
		return fmt.Errorf("invalid shape id: %w", err)
	}

	data, err := os.ReadFile(pos[1])
	if err != nil {
		return err
	}
	md, err := formats.ParseMorphDataWith(data, formatOptions(cfg))
	if err != nil {
		return fmt.Errorf("%s: %w", pos[1], err)
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.PutNamed(shape, attrstore.MorphStreamID, *name, data); err != nil {
		return err
	}
	logger.Info("imported",
		zap.Stringer("shape", shape),
		zap.Int("base_vertices", len(md.Base)),
		zap.Int("targets", len(md.Targets)))
	fmt.Printf("Imported: %s (%d targets, %d bytes)\n", shape, len(md.Targets), len(data))
	return nil
}

func cmdExport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 2 {
		return usage("export <shape-uuid> <file.mtd>")
	}
	shape, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid shape id: %w", err)
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	data, err := db.Get(shape, attrstore.MorphStreamID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(fs.Arg(1), data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", fs.Arg(1), err)
	}
	fmt.Printf("Exported: %s (%d bytes)\n", fs.Arg(1), len(data))
	return nil
}

// editFile loads a record, applies edit and writes it back.
func editFile(cfg *config.Config, path string, edit func(*morph.Store) error) error {
	s, err := loadStore(cfg, path)
	if err != nil {
		return err
	}
	if err := edit(s); err != nil {
		return err
	}
	return saveStore(cfg, path, s)
}

func cmdWeight(cfg *config.Config, args []string) error {
	if len(args) < 3 {
		return usage("weight <file.mtd> <target> <w>")
	}
	w, err := strconv.ParseFloat(args[2], 32)
	if err != nil {
		return fmt.Errorf("invalid weight %q", args[2])
	}
	return editFile(cfg, args[0], func(s *morph.Store) error {
		id, err := findTarget(s, args[1])
		if err != nil {
			return err
		}
		if err := s.SetWeight(id, float32(w)); err != nil {
			return err
		}
		fmt.Printf("%s: weight %.3f\n", s.Name(id), s.Weight(id))
		return nil
	})
}

func cmdRename(cfg *config.Config, args []string) error {
	if len(args) < 3 {
		return usage("rename <file.mtd> <target> <name>")
	}
	return editFile(cfg, args[0], func(s *morph.Store) error {
		id, err := findTarget(s, args[1])
		if err != nil {
			return err
		}
		return s.SetName(id, args[2])
	})
}

func cmdRemove(cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return usage("remove <file.mtd> <target>")
	}
	return editFile(cfg, args[0], func(s *morph.Store) error {
		id, err := findTarget(s, args[1])
		if err != nil {
			return err
		}
		name := s.Name(id)
		if err := s.RemoveTarget(id); err != nil {
			return err
		}
		fmt.Printf("Removed: %s (%d left)\n", name, s.Len())
		return nil
	})
}

func cmdZero(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return usage("zero <file.mtd>")
	}
	return editFile(cfg, args[0], func(s *morph.Store) error {
		s.ZeroAllWeights()
		return nil
	})
}

func cmdBlend(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return usage("blend <file.mtd>")
	}
	s, err := loadStore(cfg, args[0])
	if err != nil {
		return err
	}

	positions, touched := morph.Blend(s.Base(), s.Targets())
	for i, p := range positions {
		if !touched[i] {
			continue
		}
		fmt.Printf("%6d  %10.4f %10.4f %10.4f\n", i, p.X, p.Y, p.Z)
	}
	return nil
}

// bindFile loads a record file into a controller over a mesh built from
// positions. The mesh carries no faces.
func bindFile(cfg *config.Config, path string, positions func(*formats.MorphData) ([]math.Vec3, error)) (*morphctl.Controller, error) {
	md, err := formats.ParseMorphDataFileWith(path, formatOptions(cfg))
	if err != nil {
		return nil, err
	}
	points, err := positions(md)
	if err != nil {
		return nil, err
	}
	c := morphctl.New(cfg, nil)
	if err := c.Bind(mesh.New(filepath.Base(path), points, nil), md); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// blended poses a record at its stored weights.
func blended(md *formats.MorphData) ([]math.Vec3, error) {
	s := morph.NewStore()
	if err := morphctl.ToStore(md, s); err != nil {
		return nil, err
	}
	points, _ := morph.Blend(s.Base(), s.Targets())
	return points, nil
}

func cmdCleanup(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return usage("cleanup <file.mtd>")
	}
	c, err := bindFile(cfg, args[0], blended)
	if err != nil {
		return err
	}
	removed, err := c.Cleanup()
	if err != nil {
		return err
	}
	if removed == 0 {
		fmt.Println("No duplicate vertices")
		return nil
	}
	if err := saveStore(cfg, args[0], c.Store()); err != nil {
		return err
	}
	fmt.Printf("Merged: %d vertices (%d left)\n", removed, c.Store().BaseLen())
	return nil
}

func cmdRebase(cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return usage("rebase <file.mtd> <live.mtd>")
	}
	live, err := formats.ParseMorphDataFileWith(args[1], formatOptions(cfg))
	if err != nil {
		return err
	}
	c, err := bindFile(cfg, args[0], func(md *formats.MorphData) ([]math.Vec3, error) {
		if len(live.Base) != len(md.Base) {
			return nil, fmt.Errorf("%w: %s has %d vertices, %s has %d",
				morph.ErrStructuralMismatch, args[0], len(md.Base), args[1], len(live.Base))
		}
		points := make([]math.Vec3, len(live.Base))
		for i, v := range live.Base {
			points[i] = math.Vec3{X: v[0], Y: v[1], Z: v[2]}
		}
		return points, nil
	})
	if err != nil {
		return err
	}

	changed, err := c.Rebase()
	if err != nil {
		return err
	}
	if !changed {
		fmt.Println("Unchanged")
		return nil
	}
	if err := saveStore(cfg, args[0], c.Store()); err != nil {
		return err
	}
	fmt.Printf("Rebased: %s\n", args[0])
	return nil
}

func cmdConfigInit(cfg *config.Config, args []string) error {
	if len(args) > 0 {
		if err := cfg.SaveTo(args[0]); err != nil {
			return err
		}
		fmt.Printf("Wrote: %s\n", args[0])
		return nil
	}
	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Printf("Wrote config to %s\n", config.ConfigDir())
	return nil
}
