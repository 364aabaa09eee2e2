package media

import (
	apperrors "github.com/jwalitptl/clinic-console/pkg/errors"
)

// Result is the outcome of reconciling a media reference list.
type Result struct {
	// FinalRefs is the ordered list to persist. The first entry is the
	// clinic's primary image.
	FinalRefs []string
	// ToDelete lists existing refs that are no longer referenced.
	ToDelete []string
}

// Reconcile computes the references to persist and the orphans to delete.
// FinalRefs is kept followed by uploaded, in the order given. A kept ref
// must be one of existing; repeated kept refs collapse to the first one.
func Reconcile(existing, uploaded, kept []string) (Result, error) {
	owned := make(map[string]bool, len(existing))
	for _, ref := range existing {
		owned[ref] = true
	}

	final := make([]string, 0, len(kept)+len(uploaded))
	inFinal := make(map[string]bool, len(kept)+len(uploaded))
	for _, ref := range kept {
		if !owned[ref] {
			return Result{}, apperrors.Validationf("image %q does not belong to this clinic", ref)
		}
		if inFinal[ref] {
			continue
		}
		inFinal[ref] = true
		final = append(final, ref)
	}
	for _, ref := range uploaded {
		if inFinal[ref] {
			continue
		}
		inFinal[ref] = true
		final = append(final, ref)
	}

	var toDelete []string
	seen := make(map[string]bool, len(existing))
	for _, ref := range existing {
		if inFinal[ref] || seen[ref] {
			continue
		}
		seen[ref] = true
		toDelete = append(toDelete, ref)
	}

	return Result{FinalRefs: final, ToDelete: toDelete}, nil
}

// ReconcileSingle is Reconcile for a single slot such as the thumbnail. A new
// ref always replaces the existing one; otherwise keep decides whether the
// existing ref survives.
func ReconcileSingle(existing, uploaded string, keep bool) Result {
	var res Result
	switch {
	case uploaded != "":
		res.FinalRefs = []string{uploaded}
		if existing != "" && existing != uploaded {
			res.ToDelete = []string{existing}
		}
	case keep && existing != "":
		res.FinalRefs = []string{existing}
	case existing != "":
		res.ToDelete = []string{existing}
	}
	return res
}

// First returns the first final ref or "".
func (r Result) First() string {
	if len(r.FinalRefs) == 0 {
		return ""
	}
	return r.FinalRefs[0]
}
