package interp

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pblang/internal/parser"
	"pblang/internal/source"
	"pblang/internal/typecheck"
)

func run(t *testing.T, src string) (string, error) {
	t.Helper()
	prog, perr := parser.Parse(source.NewFile("test.pb", src))
	if perr != nil {
		t.Fatalf("parse failed: %v", perr)
	}
	info, cerr := typecheck.Check(prog)
	if cerr != nil {
		t.Fatalf("check failed: %v", cerr)
	}
	return Run(info)
}

// The six end-to-end scenarios from the language reference.
func TestEndToEndScenarios(t *testing.T) {
	for _, test := range []struct {
		name, src, want string
	}{
		{
			"arith",
			"def main():\n    print(1 + 2)\n",
			"3\n",
		},
		{
			"list-assign",
			"arr: list[int] = [10]\narr[0] = 20\nprint(arr[0])\n",
			"20\n",
		},
		{
			"index-error",
			"def main():\n    try:\n        arr: list[int] = []\n        arr[5] = 1\n    except IndexError as e:\n        print(e)\n",
			"cannot assign to index 5 in list[int] of length 0\n",
		},
		{
			"inheritance",
			"class P:\n    def __init__(self):\n        self.hp = 10\nclass M(P):\n    def __init__(self):\n        P.__init__(self)\n        self.mp = 5\ndef main():\n    m: M = M()\n    print(m.hp)\n    print(m.mp)\n",
			"10\n5\n",
		},
		{
			"globals",
			"counter: int = 100\ndef bump():\n    global counter\n    counter += 1\ndef main():\n    bump()\n    print(counter)\n",
			"101\n",
		},
		{
			"try-div",
			"def div(a: int, b: int) -> int:\n    if b == 0:\n        raise RuntimeError(\"zero\")\n    return a // b\ndef main():\n    try:\n        print(div(10, 0))\n    except RuntimeError as e:\n        print(e)\n",
			"zero\n",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, err := run(t, test.src)
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("stdout mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPrintFormats(t *testing.T) {
	for _, test := range []struct{ src, want string }{
		{"def main():\n    print(42)\n", "42\n"},
		{"def main():\n    print(50.0)\n", "50.0\n"},
		{"def main():\n    print(3.5)\n", "3.5\n"},
		{"def main():\n    print(True)\n", "True\n"},
		{"def main():\n    print(False)\n", "False\n"},
		{"def main():\n    print(\"hi\")\n", "hi\n"},
		{"def main():\n    xs: list[int] = [1, 2, 3]\n    print(xs)\n", "[1, 2, 3]\n"},
		{"def main():\n    xs: list[str] = [\"a\", \"it's\"]\n    print(xs)\n", `['a', "it's"]` + "\n"},
		{"def main():\n    d: dict[str, int] = {\"k\": 1, \"j\": 2}\n    print(d)\n", "{'k': 1, 'j': 2}\n"},
		{"def main():\n    print(7 / 2)\n", "3.5\n"},
		{"def main():\n    print(7 // 2)\n", "3\n"},
		{"def main():\n    print(-7 // 2)\n", "-4\n"},
		{"def main():\n    print(-7 % 3)\n", "2\n"},
		{"def main():\n    print(7.0 // 2)\n", "3.0\n"},
		{"def main():\n    hp: int = 9\n    print(f\"hp={hp}!\")\n", "hp=9!\n"},
		{"def main():\n    v: float = 2.5\n    print(f\"v={v}\")\n", "v=2.5\n"},
		{"def main():\n    b: bool = True\n    print(f\"b={b}\")\n", "b=True\n"},
		{"def main():\n    print(str(12))\n", "12\n"},
		{"def main():\n    print(int(\"34\") + 1)\n", "35\n"},
		{"def main():\n    print(int(3.9))\n", "3\n"},
		{"def main():\n    print(bool(\"\"))\n", "False\n"},
		{"def main():\n    print(float(2))\n", "2.0\n"},
	} {
		got, err := run(t, test.src)
		if err != nil {
			t.Errorf("run(%q) failed: %v", test.src, err)
			continue
		}
		if got != test.want {
			t.Errorf("run(%q) = %q, want %q", test.src, got, test.want)
		}
	}
}

func TestControlFlow(t *testing.T) {
	for _, test := range []struct{ src, want string }{
		{"def main():\n    for i in range(3):\n        print(i)\n", "0\n1\n2\n"},
		{"def main():\n    for i in range(1, 4):\n        print(i)\n", "1\n2\n3\n"},
		{"def main():\n    i: int = 0\n    while i < 5:\n        i += 1\n        if i == 2:\n            continue\n        if i == 4:\n            break\n        print(i)\n", "1\n3\n"},
		{"def main():\n    x: int = 3\n    if x == 1:\n        print(1)\n    elif x == 3:\n        print(3)\n    else:\n        print(0)\n", "3\n"},
		{"def fact(n: int) -> int:\n    if n <= 1:\n        return 1\n    return n * fact(n - 1)\ndef main():\n    print(fact(5))\n", "120\n"},
	} {
		got, err := run(t, test.src)
		if err != nil {
			t.Errorf("run(%q) failed: %v", test.src, err)
			continue
		}
		if got != test.want {
			t.Errorf("run(%q) = %q, want %q", test.src, got, test.want)
		}
	}
}

func TestMethodsAndStatics(t *testing.T) {
	src := "class C:\n    kind: str = \"cat\"\n    def __init__(self, n: int = 3):\n        self.n = n\n    def double(self) -> int:\n        return self.n * 2\nclass D(C):\n    pass\ndef main():\n    c: C = C()\n    d: D = D(5)\n    print(c.double())\n    print(d.double())\n    print(C.kind)\n"
	got, err := run(t, src)
	if err != nil {
		t.Fatal(err)
	}
	want := "6\n10\ncat\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestListMethods(t *testing.T) {
	src := "def main():\n    xs: list[int] = [1, 2]\n    xs.append(3)\n    print(xs)\n    n: int = xs.pop()\n    print(n)\n    ok: bool = xs.remove(1)\n    print(ok)\n    print(xs)\n"
	got, err := run(t, src)
	if err != nil {
		t.Fatal(err)
	}
	want := "[1, 2, 3]\n3\nTrue\n[2]\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestUncaughtExceptionFails(t *testing.T) {
	src := "def main():\n    raise ValueError(\"bad\")\n"
	out, err := run(t, src)
	if err == nil {
		t.Fatal("run succeeded, want uncaught exception")
	}
	if !strings.Contains(err.Error(), "ValueError") || !strings.Contains(err.Error(), "bad") {
		t.Errorf("error = %v, want ValueError with message", err)
	}
	if out != "" {
		t.Errorf("output = %q, want empty", out)
	}
}

func TestUserExceptionClass(t *testing.T) {
	src := "class AppError:\n    def __init__(self, msg: str):\n        self.msg = msg\ndef main():\n    try:\n        raise AppError(\"broken\")\n    except AppError as e:\n        print(e)\n"
	got, err := run(t, src)
	if err != nil {
		t.Fatal(err)
	}
	if got != "broken\n" {
		t.Errorf("got %q, want %q", got, "broken\n")
	}
}

func TestNestedTryReraise(t *testing.T) {
	src := "def main():\n    try:\n        try:\n            raise ValueError(\"inner\")\n        except IndexError:\n            print(\"wrong\")\n    except ValueError as e:\n        print(e)\n"
	got, err := run(t, src)
	if err != nil {
		t.Fatal(err)
	}
	if got != "inner\n" {
		t.Errorf("got %q, want %q", got, "inner\n")
	}
}

func TestAssertFailureIsFatal(t *testing.T) {
	src := "def main():\n    try:\n        assert False\n    except RuntimeError:\n        print(\"caught\")\n"
	_, err := run(t, src)
	if err == nil || !strings.Contains(err.Error(), "Assertion failed") {
		t.Errorf("err = %v, want fatal assertion failure", err)
	}
}

func TestMissingDictKeyIsFatal(t *testing.T) {
	src := "def main():\n    d: dict[str, int] = {\"a\": 1}\n    print(d[\"b\"])\n"
	_, err := run(t, src)
	if err == nil || !strings.Contains(err.Error(), "Key not found in dict") {
		t.Errorf("err = %v, want fatal missing key", err)
	}
}
