package build

import (
	"strings"
	"testing"
)

const imperativeSample = `
FROM 14.2-RELEASE
ARG NGINX_VERSION=1.25
ENV PREFIX=/usr/local
RUN pkg install -y nginx
COPY nginx.conf /usr/local/etc/nginx/nginx.conf
WORKDIR /usr/local
EXPOSE 80/tcp
CMD /usr/sbin/service nginx start
`

const recordSample = `
from: 14.2-RELEASE
workdir: /usr/local
args:
  - name: NGINX_VERSION
    default: "1.25"
env:
  PREFIX: /usr/local
run:
  - pkg install -y nginx
copy:
  - src: nginx.conf
    dest: /usr/local/etc/nginx/nginx.conf
expose:
  - port: 80
    protocol: tcp
cmd: /usr/sbin/service nginx start
`

func TestParseImperativeProducesExpectedSteps(t *testing.T) {
	plan, err := ParseImperative(imperativeSample)
	if err != nil {
		t.Fatalf("ParseImperative: %v", err)
	}
	assertPlanShape(t, plan)
}

func TestParseRecordProducesExpectedSteps(t *testing.T) {
	plan, err := ParseRecord(strings.NewReader(recordSample))
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	assertPlanShape(t, plan)
}

func assertPlanShape(t *testing.T, plan *BuildPlan) {
	t.Helper()
	if plan.BaseRelease != "14.2-RELEASE" {
		t.Errorf("BaseRelease = %q, want 14.2-RELEASE", plan.BaseRelease)
	}
	if len(plan.DeclaredArgs) != 1 || plan.DeclaredArgs[0].Name != "NGINX_VERSION" || plan.DeclaredArgs[0].Default != "1.25" {
		t.Errorf("DeclaredArgs = %+v, want one NGINX_VERSION=1.25", plan.DeclaredArgs)
	}
	if len(plan.ExposedPorts) != 1 || plan.ExposedPorts[0].Port != 80 || plan.ExposedPorts[0].Protocol != "tcp" {
		t.Errorf("ExposedPorts = %+v, want 80/tcp", plan.ExposedPorts)
	}
	if plan.Cmd != "/usr/sbin/service nginx start" {
		t.Errorf("Cmd = %q", plan.Cmd)
	}

	var sawRun, sawCopy, sawWorkdir bool
	for _, step := range plan.Steps {
		switch step.Kind {
		case StepRun:
			sawRun = step.Command == "pkg install -y nginx"
		case StepCopy:
			sawCopy = step.Src == "nginx.conf" && step.Dest == "/usr/local/etc/nginx/nginx.conf"
		case StepWorkdir:
			sawWorkdir = step.Path == "/usr/local"
		}
	}
	if !sawRun {
		t.Error("missing expected RUN step")
	}
	if !sawCopy {
		t.Error("missing expected COPY step")
	}
	if !sawWorkdir {
		t.Error("missing expected WORKDIR step")
	}
}

func TestParseImperativeRejectsUnknownInstruction(t *testing.T) {
	_, err := ParseImperative("FROM 14.2-RELEASE\nBOGUS foo\n")
	if err == nil {
		t.Fatal("expected error for unknown instruction")
	}
}

func TestParseImperativeRequiresBaseRelease(t *testing.T) {
	_, err := ParseImperative("RUN echo hi\n")
	if err != ErrNoBaseRelease {
		t.Fatalf("err = %v, want ErrNoBaseRelease", err)
	}
}

func TestParseRecordRequiresBaseRelease(t *testing.T) {
	_, err := ParseRecord(strings.NewReader("run:\n  - echo hi\n"))
	if err != ErrNoBaseRelease {
		t.Fatalf("err = %v, want ErrNoBaseRelease", err)
	}
}

func TestBothParsersAgreeOnStepCount(t *testing.T) {
	imp, err := ParseImperative(imperativeSample)
	if err != nil {
		t.Fatalf("ParseImperative: %v", err)
	}
	rec, err := ParseRecord(strings.NewReader(recordSample))
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if len(imp.Steps) != len(rec.Steps) {
		t.Errorf("step count mismatch: imperative=%d record=%d", len(imp.Steps), len(rec.Steps))
	}
}
