// Command mkdisk builds the flat-directory disk image boot.Run and
// ufs.Boot expect to mount, the way biscuit's own mkfs walks a skeleton
// directory and copies its files in. Our adapted ufs package only
// mounts and reads images (see DESIGN.md), it never gained the
// teacher's MkDisk/BootFS writer side, so this tool assembles the
// image directly out of fs package primitives instead of calling into
// ufs at all.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"fs"
)

// direntCount is how many fs.Dirent_t slots fit in one directory block.
const direntCount = fs.NDIRENTS

func main() {
	var skelDir string

	root := &cobra.Command{
		Use:   "mkdisk <output image>",
		Short: "Build a flat-directory disk image from a host skeleton directory",
		Long: `mkdisk walks a host directory tree and copies every regular file it
finds into a flat on-disk directory (one superblock sector, one or more
directory sectors, then each file's data sectors), the minimal layout
ufs.Boot mounts at kernel boot.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], skelDir)
		},
	}

	root.Flags().StringVar(&skelDir, "skel", "", "host directory tree to copy into the image (required)")
	root.MarkFlagRequired("skel")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// fileEntry is one file gathered from the skeleton directory: its name
// inside the image and its contents read off the host.
type fileEntry struct {
	name string
	data []byte
}

// collect walks skelDir and returns its regular files sorted by name,
// the way addfiles' filepath.WalkDir call does in biscuit's mkfs, but
// flattened: this fs package has no subdirectory support (see
// DESIGN.md), so nested paths are joined with "_" to stay unique and
// within fs.NameMax.
func collect(skelDir string) ([]fileEntry, error) {
	var out []fileEntry
	err := filepath.WalkDir(skelDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(skelDir, path)
		if err != nil {
			return err
		}
		name := strings.ReplaceAll(filepath.ToSlash(rel), "/", "_")
		if len(name) > fs.NameMax {
			return fmt.Errorf("name %q exceeds %d bytes after flattening", name, fs.NameMax)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out = append(out, fileEntry{name: name, data: data})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

// run gathers the skeleton directory's files, lays them out as
// superblock + directory blocks + data blocks, and writes the result
// to outPath.
func run(outPath, skelDir string) error {
	files, err := collect(skelDir)
	if err != nil {
		return fmt.Errorf("mkdisk: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("mkdisk: %q contains no regular files", skelDir)
	}

	rootBlocks := (len(files) + direntCount - 1) / direntCount
	dirBlocks := make([][]byte, rootBlocks)
	for i := range dirBlocks {
		dirBlocks[i] = make([]byte, fs.BSIZE)
	}

	const rootSector = 1
	nextSector := uint32(rootSector + rootBlocks)
	var dataBlocks [][]byte

	for i, fe := range files {
		blk := i / direntCount
		slot := i % direntCount
		dd := fs.Dirdata_t{Data: dirBlocks[blk]}
		dd.SetEntry(slot, fe.name, nextSector, uint32(len(fe.data)))

		nsec := (len(fe.data) + fs.BSIZE - 1) / fs.BSIZE
		if nsec == 0 {
			nsec = 1
		}
		padded := make([]byte, nsec*fs.BSIZE)
		copy(padded, fe.data)
		for s := 0; s < nsec; s++ {
			dataBlocks = append(dataBlocks, padded[s*fs.BSIZE:(s+1)*fs.BSIZE])
		}
		nextSector += uint32(nsec)
	}

	sbBlock := make([]byte, fs.BSIZE)
	sb := fs.Superblock_t{Data: sbBlock}
	sb.SetRootSector(rootSector)
	sb.SetRootBlocks(uint32(rootBlocks))

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("mkdisk: %w", err)
	}
	defer out.Close()

	blocks := append([][]byte{sbBlock}, dirBlocks...)
	blocks = append(blocks, dataBlocks...)
	for _, blk := range blocks {
		if _, err := out.Write(blk); err != nil {
			return fmt.Errorf("mkdisk: write %q: %w", outPath, err)
		}
	}

	fmt.Printf("mkdisk: wrote %d files (%d directory block(s)) to %s\n", len(files), rootBlocks, outPath)
	return nil
}
