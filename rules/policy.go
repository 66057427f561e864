// Package rules holds the business rules of FormFlow that exist apart from
// storage: access policy, question ordering, per-type quotas and submission
// validation. Everything here is a pure function over entity snapshots;
// callers load state, consult the rules, then commit.
package rules

import "github.com/formflow/formflow/model"

// CanModify reports whether the actor may mutate the template or anything
// it owns. Only the author and admins qualify.
func CanModify(actor model.Actor, tmpl model.Template) bool {
	if actor.Anonymous() {
		return false
	}
	return actor.ID == tmpl.AuthorID || actor.Admin()
}

// CanView reports whether the actor may read the template. PUBLIC templates
// are visible to everyone, including anonymous callers; RESTRICTED ones only
// to whoever could modify them.
func CanView(actor model.Actor, tmpl model.Template) bool {
	if tmpl.Access == model.AccessPublic {
		return true
	}
	return CanModify(actor, tmpl)
}

// CanViewForm reports whether the actor may read a submitted form: the
// submitter, the author of the form's template, and admins may.
// form.Template must be loaded.
func CanViewForm(actor model.Actor, form model.Form) bool {
	if actor.Anonymous() {
		return false
	}
	if actor.ID == form.SubmitterID || actor.Admin() {
		return true
	}
	return form.Template != nil && actor.ID == form.Template.AuthorID
}
