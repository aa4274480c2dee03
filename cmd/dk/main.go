// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Command dk is the outer CLI described by spec.md §6: a thin
// subcommand dispatcher over internal/etl.Instance. It is not part of
// the core; every subcommand here is a few lines of flag parsing
// feeding straight into an Instance method.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dkcore/dk/internal/etl"
	"github.com/dkcore/dk/internal/secret"
)

var (
	dashv         bool
	dashModel     string
	dashEntity    string
	dashTransform string
)

func init() {
	flag.BoolVar(&dashv, "v", false, "verbose")
	flag.StringVar(&dashModel, "model", "model.yaml", "model document path")
	flag.StringVar(&dashEntity, "entity", "", "entity name to coerce against")
	flag.StringVar(&dashTransform, "transform", "", "transform name to apply")
}

func exitf(f string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, f, args...)
	if !strings.HasSuffix(f, "\n") {
		fmt.Fprintln(os.Stderr)
	}
	os.Exit(1)
}

func logf(msg string) {
	if dashv {
		fmt.Fprintln(os.Stderr, msg)
	}
}

func open() *etl.Instance {
	inst, err := etl.Open(dashModel, logf)
	if err != nil {
		exitf("opening model %s: %s", dashModel, err)
	}
	return inst
}

func runETL(args []string) {
	if len(args) < 2 {
		exitf("usage: run etl <source> <sink>")
	}
	inst := open()
	res, err := inst.RunETL(etl.ETLOptions{
		SourceURI: args[0],
		SinkURI:   args[1],
		Entity:    dashEntity,
		Transform: dashTransform,
	})
	if err != nil {
		exitf("run etl: %s", err)
	}
	fmt.Printf("read %d records, wrote %d records\n", res.RecordsRead, res.RecordsWritten)
}

func runQuery(args []string) {
	if len(args) < 1 {
		exitf("usage: run query <name> [var=value ...]")
	}
	inst := open()
	vars := map[string]string{}
	for _, kv := range args[1:] {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			exitf("bad variable assignment %q, expected var=value", kv)
		}
		vars[parts[0]] = parts[1]
	}
	text, err := inst.RenderQuery(args[0], vars)
	if err != nil {
		exitf("run query: %s", err)
	}
	fmt.Println(text)
}

func xplore(args []string) {
	if len(args) < 1 {
		exitf("usage: xplore head|fields|distinct|count|summary|histogram <endpoint> [...]")
	}
	inst := open()
	sub, rest := args[0], args[1:]
	switch sub {
	case "head":
		if len(rest) < 1 {
			exitf("usage: xplore head <endpoint> [n]")
		}
		n := 10
		if len(rest) > 1 {
			v, err := strconv.Atoi(rest[1])
			if err != nil {
				exitf("bad count %q: %s", rest[1], err)
			}
			n = v
		}
		recs, err := inst.Head(rest[0], n)
		if err != nil {
			exitf("xplore head: %s", err)
		}
		for _, rec := range recs {
			fmt.Println(rec.Names())
		}
	case "fields":
		if len(rest) < 1 {
			exitf("usage: xplore fields <endpoint>")
		}
		fields, err := inst.Fields(rest[0])
		if err != nil {
			exitf("xplore fields: %s", err)
		}
		for _, f := range fields {
			fmt.Println(f)
		}
	case "distinct":
		if len(rest) < 2 {
			exitf("usage: xplore distinct <endpoint> <field>")
		}
		vals, err := inst.Distinct(rest[0], rest[1])
		if err != nil {
			exitf("xplore distinct: %s", err)
		}
		for _, v := range vals {
			fmt.Println(v.String())
		}
	case "count":
		if len(rest) < 1 {
			exitf("usage: xplore count <endpoint>")
		}
		n, err := inst.Count(rest[0])
		if err != nil {
			exitf("xplore count: %s", err)
		}
		fmt.Println(n)
	case "summary":
		if len(rest) < 1 {
			exitf("usage: xplore summary <endpoint>")
		}
		ent, err := inst.Summary(rest[0], 1.0, 0)
		if err != nil {
			exitf("xplore summary: %s", err)
		}
		for _, name := range ent.Names() {
			fd, _ := ent.Get(name)
			fmt.Printf("%s: %s\n", name, fd.Type)
		}
	case "histogram":
		if len(rest) < 2 {
			exitf("usage: xplore histogram <endpoint> <field> [buckets]")
		}
		buckets := 10
		if len(rest) > 2 {
			v, err := strconv.Atoi(rest[2])
			if err != nil {
				exitf("bad bucket count %q: %s", rest[2], err)
			}
			buckets = v
		}
		counts, err := inst.Histogram(rest[0], rest[1], buckets)
		if err != nil {
			exitf("xplore histogram: %s", err)
		}
		for i, c := range counts {
			fmt.Printf("bucket %d: %d\n", i, c)
		}
	default:
		exitf("unknown xplore subcommand %q", sub)
	}
}

func connections(args []string) {
	inst := open()
	if len(args) == 0 {
		for name := range inst.Model.Connections {
			fmt.Println(name)
		}
		return
	}
	if len(args) < 3 || args[0] != "add" {
		exitf("usage: connections add <name> <uri> [password]")
	}
	name, uri := args[1], args[2]
	password := ""
	if len(args) > 3 {
		password = args[3]
	}
	if _, err := inst.Model.AddConnection(name, uri, password, inst.Encryptor); err != nil {
		exitf("connections add: %s", err)
	}
	if err := inst.Save(); err != nil {
		exitf("saving model: %s", err)
	}
}

func endpoints(args []string) {
	inst := open()
	if len(args) == 0 {
		for name := range inst.Model.Endpoints {
			fmt.Println(name)
		}
		return
	}
	if len(args) < 5 || args[0] != "add" {
		exitf("usage: endpoints add <name> <connection> <table> <entity>")
	}
	if _, err := inst.Model.AddEndpoint(args[1], args[2], args[3], args[4]); err != nil {
		exitf("endpoints add: %s", err)
	}
	if err := inst.Save(); err != nil {
		exitf("saving model: %s", err)
	}
}

func queries(args []string) {
	inst := open()
	if len(args) == 0 {
		for name := range inst.Model.Queries {
			fmt.Println(name)
		}
		return
	}
	vars, err := inst.QueryVariables(args[0])
	if err != nil {
		exitf("queries: %s", err)
	}
	fmt.Printf("%s: variables %v\n", args[0], vars)
}

func schemas(args []string) {
	inst := open()
	for name := range inst.Model.Entities {
		fmt.Println(name)
	}
	_ = args
}

func admin(args []string) {
	if len(args) < 1 {
		exitf("usage: admin generate-key|show-config")
	}
	switch args[0] {
	case "generate-key":
		key, err := secret.GenerateKey()
		if err != nil {
			exitf("generate-key: %s", err)
		}
		fmt.Println(key)
	case "show-config":
		inst := open()
		fmt.Printf("model: %s\n", inst.ModelPath)
		if key, ok := inst.Config.Key(); ok {
			fmt.Printf("config key: %s\n", key)
		}
	default:
		exitf("unknown admin subcommand %q", args[0])
	}
}

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "usage:\n")
		fmt.Fprintf(os.Stderr, "    %s admin generate-key|show-config\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "    %s connections [add <name> <uri> [password]]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "    %s endpoints [add <name> <connection> <table> <entity>]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "    %s queries [<name>]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "    %s schemas\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "    %s run etl <source> <sink>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "    %s run query <name> [var=value ...]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "    %s xplore head|fields|distinct|count|summary|histogram <endpoint> [...]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "flag usage:\n")
		flag.Usage()
		os.Exit(1)
	}

	switch args[0] {
	case "admin":
		admin(args[1:])
	case "connections":
		connections(args[1:])
	case "endpoints":
		endpoints(args[1:])
	case "queries":
		queries(args[1:])
	case "schemas":
		schemas(args[1:])
	case "run":
		if len(args) < 2 {
			exitf("usage: run etl|query ...")
		}
		switch args[1] {
		case "etl":
			runETL(args[2:])
		case "query":
			runQuery(args[2:])
		default:
			exitf("unknown run subcommand %q", args[1])
		}
	case "xplore":
		xplore(args[1:])
	default:
		exitf("commands: admin, connections, endpoints, queries, schemas, run, xplore")
	}
}
