package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/disha/internal/core"
)

// importFile imports path and prints a summary with one line per failed row.
func (cli *commandLine) importFile(ctx context.Context, path string, format core.Format) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := cli.service.Import(ctx, core.ImportRequest{
		FileName: filepath.Base(path),
		Format:   format,
		Body:     f,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "imported %d of %d students from %s\n", res.Inserted, res.TotalRows, res.FileName)
	for _, row := range res.FailedRows {
		fmt.Fprintf(cli.out, "  line %d: %s\n", row.LineNumber, row.Reason)
	}
	return nil
}

// export writes matching students to path, or to the command output when
// path is empty.
func (cli *commandLine) export(ctx context.Context, path string, format core.Format, criteria core.FilterCriteria) error {
	if path == "" {
		_, err := cli.service.Export(ctx, cli.out, criteria, format)
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	n, err := cli.service.Export(ctx, f, criteria, format)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	fmt.Fprintf(cli.out, "exported %d students to %s\n", n, path)
	return nil
}
