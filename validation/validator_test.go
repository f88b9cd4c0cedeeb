package validation

import (
	"reflect"
	"testing"

	"github.com/c360studio/specgov/spec"
)

func req(name, body string, scenarios ...spec.Scenario) spec.Requirement {
	return spec.Requirement{Name: name, Body: body, Scenarios: scenarios}
}

func scen(name string) spec.Scenario {
	return spec.Scenario{Name: name, Body: "- **WHEN** x\n- **THEN** y"}
}

func kinds(diags []Diagnostic) []Kind {
	if len(diags) == 0 {
		return nil
	}
	out := make([]Kind, len(diags))
	for i, d := range diags {
		out[i] = d.Kind
	}
	return out
}

func hasKind(diags []Diagnostic, kind Kind) bool {
	for _, d := range diags {
		if d.Kind == kind {
			return true
		}
	}
	return false
}

func TestValidate_ContentRules(t *testing.T) {
	tests := []struct {
		name        string
		doc         *spec.ChangeDocument
		expectKinds []Kind
	}{
		{
			name: "valid added requirement",
			doc: &spec.ChangeDocument{Sections: []spec.DeltaSection{
				{Op: spec.OpAdded, Requirements: []spec.Requirement{
					req("R1", "The system SHALL do X.", scen("S1")),
				}},
			}},
			expectKinds: nil,
		},
		{
			name:        "no delta operations",
			doc:         &spec.ChangeDocument{},
			expectKinds: []Kind{KindNoDeltaOperation},
		},
		{
			name: "missing normative language regardless of scenarios",
			doc: &spec.ChangeDocument{Sections: []spec.DeltaSection{
				{Op: spec.OpAdded, Requirements: []spec.Requirement{
					req("R1", "The system will do X.", scen("S1"), scen("S2"), scen("S3")),
				}},
			}},
			expectKinds: []Kind{KindMissingNormativeLanguage},
		},
		{
			name: "missing scenario",
			doc: &spec.ChangeDocument{Sections: []spec.DeltaSection{
				{Op: spec.OpModified, Requirements: []spec.Requirement{
					req("R1", "The system SHALL do X."),
				}},
			}},
			expectKinds: []Kind{KindMissingScenario},
		},
		{
			name: "empty scenario name",
			doc: &spec.ChangeDocument{Sections: []spec.DeltaSection{
				{Op: spec.OpAdded, Requirements: []spec.Requirement{
					req("R1", "The system SHALL do X.", spec.Scenario{Name: ""}),
				}},
			}},
			expectKinds: []Kind{KindMalformedScenarioHeading},
		},
		{
			name: "misleveled scenario heading left in body",
			doc: &spec.ChangeDocument{Sections: []spec.DeltaSection{
				{Op: spec.OpAdded, Requirements: []spec.Requirement{
					req("R1", "The system SHALL do X.\n\n### Scenario: wrong level", scen("S1")),
				}},
			}},
			expectKinds: []Kind{KindMalformedScenarioHeading},
		},
		{
			name: "missing removal reason",
			doc: &spec.ChangeDocument{Sections: []spec.DeltaSection{
				{Op: spec.OpRemoved, Removals: []spec.Removal{{Name: "R1"}}},
			}},
			expectKinds: []Kind{KindMissingRemovalReason},
		},
		{
			name: "multiple problems all reported",
			doc: &spec.ChangeDocument{Sections: []spec.DeltaSection{
				{Op: spec.OpAdded, Requirements: []spec.Requirement{
					req("R1", "No norms here."),
				}},
				{Op: spec.OpRemoved, Removals: []spec.Removal{{Name: "R2"}}},
			}},
			expectKinds: []Kind{KindMissingNormativeLanguage, KindMissingScenario, KindMissingRemovalReason},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := Validate(tt.doc, nil, Options{})
			got := kinds(diags)
			if !reflect.DeepEqual(got, tt.expectKinds) {
				t.Errorf("kinds = %v, want %v", got, tt.expectKinds)
			}
		})
	}
}

func TestValidate_ReferenceRules(t *testing.T) {
	baseline := &spec.CapabilityDocument{
		Capability: "auth",
		Requirements: []spec.Requirement{
			req("Login", "Users SHALL log in.", scen("Basic")),
			req("Logout", "Users SHALL log out.", scen("Basic")),
		},
	}

	tests := []struct {
		name        string
		doc         *spec.ChangeDocument
		expectKinds []Kind
	}{
		{
			name: "modified resolves",
			doc: &spec.ChangeDocument{Sections: []spec.DeltaSection{
				{Op: spec.OpModified, Requirements: []spec.Requirement{
					req("Login", "Users SHALL log in with MFA.", scen("MFA")),
				}},
			}},
			expectKinds: nil,
		},
		{
			name: "modified unresolved",
			doc: &spec.ChangeDocument{Sections: []spec.DeltaSection{
				{Op: spec.OpModified, Requirements: []spec.Requirement{
					req("Signup", "Users SHALL sign up.", scen("Basic")),
				}},
			}},
			expectKinds: []Kind{KindUnresolvedReference},
		},
		{
			name: "removed unresolved",
			doc: &spec.ChangeDocument{Sections: []spec.DeltaSection{
				{Op: spec.OpRemoved, Removals: []spec.Removal{{Name: "Signup", Reason: "never shipped"}}},
			}},
			expectKinds: []Kind{KindUnresolvedReference},
		},
		{
			name: "renamed FROM unresolved",
			doc: &spec.ChangeDocument{Sections: []spec.DeltaSection{
				{Op: spec.OpRenamed, Renames: []spec.Rename{{From: "Signup", To: "Registration"}}},
			}},
			expectKinds: []Kind{KindUnresolvedReference},
		},
		{
			name: "duplicate addition",
			doc: &spec.ChangeDocument{Sections: []spec.DeltaSection{
				{Op: spec.OpAdded, Requirements: []spec.Requirement{
					req("Login", "Users SHALL log in.", scen("Basic")),
				}},
			}},
			expectKinds: []Kind{KindDuplicateAddition},
		},
		{
			name: "whitespace-insensitive matching",
			doc: &spec.ChangeDocument{Sections: []spec.DeltaSection{
				{Op: spec.OpModified, Requirements: []spec.Requirement{
					req("Login ", "Users SHALL log in quickly.", scen("Fast")),
				}},
			}},
			expectKinds: nil,
		},
		{
			name: "modified may reference rename target",
			doc: &spec.ChangeDocument{Sections: []spec.DeltaSection{
				{Op: spec.OpRenamed, Renames: []spec.Rename{{From: "Login", To: "Sign In"}}},
				{Op: spec.OpModified, Requirements: []spec.Requirement{
					req("Sign In", "Users SHALL sign in.", scen("Basic")),
				}},
			}},
			expectKinds: nil,
		},
		{
			name: "modified by old name after rename is unresolved",
			doc: &spec.ChangeDocument{Sections: []spec.DeltaSection{
				{Op: spec.OpRenamed, Renames: []spec.Rename{{From: "Signup2", To: "Registration"}}},
				{Op: spec.OpModified, Requirements: []spec.Requirement{
					req("Whatever", "It SHALL work.", scen("Basic")),
				}},
			}},
			expectKinds: []Kind{KindUnresolvedReference, KindUnresolvedReference},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := CheckReferences(tt.doc, baseline)
			got := kinds(diags)
			if !reflect.DeepEqual(got, tt.expectKinds) {
				t.Errorf("kinds = %v, want %v (diags: %v)", got, tt.expectKinds, diags)
			}
		})
	}
}

func TestValidate_FormattingEscalation(t *testing.T) {
	doc := &spec.ChangeDocument{Sections: []spec.DeltaSection{
		{Op: spec.OpAdded, Requirements: []spec.Requirement{
			req("R1", "The system SHALL do X.", scen("S1")),
		}},
	}}
	formatting := []Diagnostic{{Severity: SeverityWarning, Message: "trailing whitespace"}}

	relaxed := Validate(doc, nil, Options{Formatting: formatting})
	if len(relaxed) != 1 || relaxed[0].Severity != SeverityWarning {
		t.Fatalf("non-strict: got %v", relaxed)
	}
	if HasFailures(relaxed) {
		t.Error("formatting warning must not fail a non-strict run")
	}

	strict := Validate(doc, nil, Options{Strict: true, Formatting: formatting})
	if len(strict) != 1 || strict[0].Severity != SeverityError {
		t.Fatalf("strict: got %v", strict)
	}
	if !HasFailures(strict) {
		t.Error("formatting warning must fail a strict run")
	}
	if strict[0].Kind != KindFormatting {
		t.Errorf("kind = %s, want %s", strict[0].Kind, KindFormatting)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	baseline := &spec.CapabilityDocument{Requirements: []spec.Requirement{
		req("Login", "Users SHALL log in.", scen("Basic")),
	}}
	doc := &spec.ChangeDocument{Sections: []spec.DeltaSection{
		{Op: spec.OpModified, Requirements: []spec.Requirement{
			req("Login", "No normative text."),
		}},
		{Op: spec.OpRemoved, Removals: []spec.Removal{{Name: "Missing"}}},
	}}

	first := Validate(doc, baseline, Options{Strict: true})
	second := Validate(doc, baseline, Options{Strict: true})
	if !reflect.DeepEqual(first, second) {
		t.Errorf("validation is not idempotent:\nfirst:  %v\nsecond: %v", first, second)
	}
	if len(first) == 0 {
		t.Fatal("expected diagnostics")
	}
}

func TestCheckReferences_RenameTargetOccupancy(t *testing.T) {
	baseline := &spec.CapabilityDocument{
		Capability: "auth",
		Requirements: []spec.Requirement{
			req("Login", "Users SHALL log in.", scen("Basic")),
			req("Logout", "Users SHALL log out.", scen("Basic")),
		},
	}

	tests := []struct {
		name       string
		doc        *spec.ChangeDocument
		wantKind   Kind
		wantClean  bool
	}{
		{
			name: "rename onto an existing name",
			doc: &spec.ChangeDocument{Capability: "auth", Sections: []spec.DeltaSection{
				{Op: spec.OpRenamed, Renames: []spec.Rename{{From: "Login", To: "Logout"}}},
			}},
			wantKind: KindConflictingOperations,
		},
		{
			name: "rename onto a whitespace variant of an existing name",
			doc: &spec.ChangeDocument{Capability: "auth", Sections: []spec.DeltaSection{
				{Op: spec.OpRenamed, Renames: []spec.Rename{{From: "Login", To: "Logout  "}}},
			}},
			wantKind: KindConflictingOperations,
		},
		{
			name: "rename onto a name removed in the same delta",
			doc: &spec.ChangeDocument{Capability: "auth", Sections: []spec.DeltaSection{
				{Op: spec.OpRemoved, Removals: []spec.Removal{{Name: "Logout", Reason: "obsolete"}}},
				{Op: spec.OpRenamed, Renames: []spec.Rename{{From: "Login", To: "Logout"}}},
			}},
			wantClean: true,
		},
		{
			name: "rename onto a fresh name",
			doc: &spec.ChangeDocument{Capability: "auth", Sections: []spec.DeltaSection{
				{Op: spec.OpRenamed, Renames: []spec.Rename{{From: "Login", To: "Sign In"}}},
			}},
			wantClean: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := CheckReferences(tt.doc, baseline)
			if tt.wantClean {
				if len(diags) != 0 {
					t.Errorf("expected no diagnostics, got %v", diags)
				}
				return
			}
			if !hasKind(diags, tt.wantKind) {
				t.Errorf("expected %s, got %v", tt.wantKind, kinds(diags))
			}
		})
	}
}
