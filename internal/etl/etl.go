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

// Package etl implements spec.md's component M: a high-level,
// instance-local façade composing every other component (A–L) behind
// a handful of operations — run an ETL job, render and report a
// query, explore an endpoint's records — the shape of command a CLI
// layer (cmd/dk) dispatches to directly. Grounded on the teacher's
// cmd/sdb command layer, which keeps exactly this kind of thin,
// composing function per subcommand rather than a deep object
// hierarchy.
package etl

import (
	"fmt"
	"io"

	"github.com/dkcore/dk/internal/codec"
	"github.com/dkcore/dk/internal/config"
	"github.com/dkcore/dk/internal/dkerr"
	"github.com/dkcore/dk/internal/factory"
	"github.com/dkcore/dk/internal/instrument"
	"github.com/dkcore/dk/internal/model"
	"github.com/dkcore/dk/internal/record"
	"github.com/dkcore/dk/internal/schema"
	"github.com/dkcore/dk/internal/secret"
	"github.com/dkcore/dk/internal/uri"
)

// Instance is a process-local handle on one model document plus the
// process-wide configuration and encryption key, matching spec.md's
// "instance-local" framing: nothing here is shared across processes
// except through the journal/model files themselves.
type Instance struct {
	Model      *model.Model
	Config     *config.Config
	Encryptor  *secret.Encryptor
	ModelPath  string
	Logger     func(string)
}

// Open loads the process configuration and a model document, wiring
// an Encryptor from the configured key when present. Either may be
// absent for read-only exploration: a nil Config/Encryptor degrades
// password-bearing connection operations to plaintext rather than
// failing outright, matching the original's "encryption is opt-in"
// posture.
func Open(modelPath string, logger func(string)) (*Instance, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	var enc *secret.Encryptor
	if key, ok := cfg.Key(); ok && key != "" {
		enc, err = secret.Open(key)
		if err != nil {
			return nil, err
		}
	}
	m, err := model.Load(modelPath)
	if err != nil {
		return nil, err
	}
	return &Instance{Model: m, Config: cfg, Encryptor: enc, ModelPath: modelPath, Logger: logger}, nil
}

// Save persists the instance's model document back to ModelPath.
func (inst *Instance) Save() error {
	return inst.Model.Save(inst.ModelPath)
}

func (inst *Instance) log(format string, args ...any) {
	if inst.Logger != nil {
		inst.Logger(fmt.Sprintf(format, args...))
	}
}

// resolveEndpoint resolves raw to a uri.Endpoint, following a
// "::name" model reference through Instance.Model when present,
// otherwise parsing raw directly as a literal endpoint URI.
func (inst *Instance) resolveEndpoint(raw string) (uri.Endpoint, error) {
	if uri.IsRef(raw) {
		return inst.Model.ResolveEndpoint(raw, inst.Encryptor)
	}
	return uri.Parse(raw)
}

// openSource opens raw (literal URI or "::name" reference) as a
// codec.Source inside scope.
func (inst *Instance) openSource(scope *factory.Scope, raw string, opts codec.Options) (codec.Source, error) {
	ep, err := inst.resolveEndpoint(raw)
	if err != nil {
		return nil, err
	}
	return factory.OpenSourceEndpoint(scope, ep, opts)
}

// openSink opens raw (literal URI or "::name" reference) as a
// codec.Sink inside scope.
func (inst *Instance) openSink(scope *factory.Scope, raw string, opts codec.Options) (codec.Sink, error) {
	ep, err := inst.resolveEndpoint(raw)
	if err != nil {
		return nil, err
	}
	return factory.OpenSinkEndpoint(scope, ep, opts)
}

// drain reads every record out of src, reporting progress through
// counter if non-nil.
func drain(src codec.Source, counter *instrument.Counter) ([]*record.Record, error) {
	var out []*record.Record
	for {
		rec, err := src.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
		if counter != nil {
			counter.Increment()
		}
	}
}

// writeAll writes every record in recs to sink, reporting progress
// through counter if non-nil.
func writeAll(sink codec.Sink, recs []*record.Record, counter *instrument.Counter) error {
	for _, rec := range recs {
		if err := sink.Write(rec); err != nil {
			return err
		}
		if counter != nil {
			counter.Increment()
		}
	}
	return nil
}

// entityFor resolves an entity name against the model's Entities map
// into a *schema.Entity, or nil if name is empty (no coercion gate
// configured for this job).
func (inst *Instance) entityFor(name string) (*schema.Entity, error) {
	if name == "" {
		return nil, nil
	}
	shorthand, ok := inst.Model.Entities[name]
	if !ok {
		return nil, &dkerr.ValidationError{Entity: name, Field: "", Detail: "unknown entity"}
	}
	return schema.FromShorthandMap(shorthand)
}
