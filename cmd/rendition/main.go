package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ghetzel/cli"
	"github.com/ghetzel/go-stockutil/fileutil"
	"github.com/ghetzel/go-stockutil/log"
	"github.com/ghetzel/rendition"
	"github.com/natefinch/atomic"
)

func main() {
	var server *rendition.Server
	var config *rendition.Config
	var app = cli.NewApp()
	app.Name = rendition.ApplicationName
	app.Usage = rendition.ApplicationSummary
	app.Version = rendition.ApplicationVersion
	app.ArgsUsage = `[TEMPLATE_FILE_OR_DIR ...]`

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   `log-level, L`,
			Usage:  `Level of log output verbosity`,
			Value:  `info`,
			EnvVar: `LOGLEVEL`,
		},
		cli.StringFlag{
			Name:   `config, c`,
			Usage:  `Path to the configuration file to use.`,
			EnvVar: `RENDITION_CONFIG`,
			Value:  rendition.DefaultConfigFilename,
		},
		cli.StringFlag{
			Name:   `address, a`,
			Usage:  `The address the server will listen on.`,
			EnvVar: `RENDITION_ADDRESS`,
		},
		cli.StringFlag{
			Name:   `render, r`,
			Usage:  `Render the named template, print the output, and exit.`,
			EnvVar: `RENDITION_RENDER`,
		},
		cli.StringFlag{
			Name:  `output, o`,
			Usage: `With --render, write the output to this file instead of standard output.`,
		},
	}

	app.Before = func(c *cli.Context) error {
		log.SetLevelString(c.String(`log-level`))
		server, config = prepServer(c)
		return nil
	}

	app.Action = func(c *cli.Context) {
		for _, arg := range c.Args() {
			log.FatalIf(registerFiles(server.Registry, arg))
		}

		if name := c.String(`render`); name != `` {
			var res, err = server.RenderOne(name, nil)

			fmt.Fprintf(os.Stderr, "HTTP %d\n", res.Code)

			if outfile := c.String(`output`); outfile != `` {
				log.FatalIf(atomic.WriteFile(fileutil.MustExpandUser(outfile), res.Body))
			} else {
				os.Stdout.Write(res.Body.Bytes())
			}

			if err != nil {
				log.Fatalf("render failed: %v", err)
			}

			return
		}

		if shutdown, err := rendition.SetupTracing(config.Tracing); err == nil {
			defer shutdown(context.Background())
		} else {
			log.Fatal(err)
		}

		if server.Cache != nil {
			defer server.Cache.Close()
		}

		log.FatalIf(server.ListenAndServe(c.String(`address`)))
	}

	app.Run(os.Args)
}

func prepServer(c *cli.Context) (*rendition.Server, *rendition.Config) {
	var server = rendition.NewServer()
	var config = new(rendition.Config)
	var cfgfile = fileutil.MustExpandUser(c.GlobalString(`config`))

	if cfgfile != `` {
		if cfg, err := rendition.LoadConfigFile(cfgfile); err == nil {
			config = cfg
		} else if !os.IsNotExist(err) {
			log.Fatal(err)
		}
	}

	log.FatalIf(config.Apply(server))

	return server, config
}

// Register a template file, or every file beneath a directory that has a renderer.
func registerFiles(registry *rendition.Registry, root string) error {
	if !fileutil.DirExists(root) {
		_, err := registry.RegisterPath(root)
		return err
	}

	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		} else if entry.IsDir() {
			return nil
		}

		if registry.GetRenderer(filepath.Ext(path)) != nil {
			if tmpl, err := registry.RegisterPath(path); err == nil {
				log.Debugf("registered %v", tmpl)
			} else {
				return err
			}
		}

		return nil
	})
}
