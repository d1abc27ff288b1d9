// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pdiddy/foldseek-fetch/pkg/types"
)

// AtomSiteConverter writes the coordinates of an mmCIF _atom_site loop as
// fixed-column PDB ATOM/HETATM records. Other categories are ignored.
type AtomSiteConverter struct{}

// Convert implements Converter.
func (AtomSiteConverter) Convert(ctx context.Context, cifPath, pdbPath string) error {
	f, err := os.Open(cifPath)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrFormatConversion, err)
	}
	defer f.Close()

	atoms, err := ReadAtomSite(f)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", types.ErrFormatConversion, cifPath, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	WritePDB(&buf, atoms)
	return writeAtomic(pdbPath, buf.Bytes())
}

// Atom is one _atom_site row.
type Atom struct {
	Record  string // ATOM or HETATM
	Serial  int
	Name    string
	AltLoc  string
	ResName string
	Chain   string
	ResSeq  int
	ICode   string
	X, Y, Z float64
	Occ     float64
	B       float64
	Element string
	Charge  int
	Model   int
}

// ReadAtomSite parses the first _atom_site loop of an mmCIF stream.
// Author numbering (auth_*) is preferred over label numbering.
func ReadAtomSite(r io.Reader) ([]Atom, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)

	var (
		tags    []string
		values  []string
		inLoop  bool
		inAtoms bool
	)
	flush := func() ([]Atom, error) {
		if len(tags) == 0 {
			return nil, fmt.Errorf("no _atom_site loop")
		}
		return buildAtoms(tags, values)
	}

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "#"):
			if inAtoms && len(values) > 0 {
				return flush()
			}
			continue
		case line == "loop_":
			if inAtoms && len(values) > 0 {
				return flush()
			}
			inLoop, inAtoms = true, false
			continue
		case strings.HasPrefix(line, "_"):
			if inAtoms && len(values) > 0 {
				return flush()
			}
			if inLoop && strings.HasPrefix(line, "_atom_site.") {
				inAtoms = true
				tags = append(tags, strings.TrimPrefix(strings.Fields(line)[0], "_atom_site."))
				continue
			}
			inAtoms = false
			continue
		case strings.HasPrefix(line, "data_"):
			if inAtoms && len(values) > 0 {
				return flush()
			}
			continue
		}
		if !inAtoms {
			continue
		}
		toks, err := tokenize(line)
		if err != nil {
			return nil, err
		}
		values = append(values, toks...)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return flush()
}

// tokenize splits a CIF data line into values, honouring single and double
// quotes. A quote only closes a value when followed by whitespace or EOL.
func tokenize(line string) ([]string, error) {
	var toks []string
	i := 0
	for i < len(line) {
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
		if i >= len(line) {
			break
		}
		if q := line[i]; q == '\'' || q == '"' {
			j := i + 1
			for {
				k := strings.IndexByte(line[j:], q)
				if k < 0 {
					return nil, fmt.Errorf("unterminated quote in %q", line)
				}
				j += k
				if j+1 == len(line) || line[j+1] == ' ' || line[j+1] == '\t' {
					break
				}
				j++
			}
			toks = append(toks, line[i+1:j])
			i = j + 1
			continue
		}
		j := i
		for j < len(line) && line[j] != ' ' && line[j] != '\t' {
			j++
		}
		toks = append(toks, line[i:j])
		i = j
	}
	return toks, nil
}

func buildAtoms(tags, values []string) ([]Atom, error) {
	if len(values)%len(tags) != 0 {
		return nil, fmt.Errorf("_atom_site has %d values for %d columns", len(values), len(tags))
	}
	col := make(map[string]int, len(tags))
	for i, t := range tags {
		col[t] = i
	}
	get := func(row []string, names ...string) string {
		for _, n := range names {
			if i, ok := col[n]; ok && !missing(row[i]) {
				return row[i]
			}
		}
		return ""
	}
	for _, required := range []string{"Cartn_x", "Cartn_y", "Cartn_z"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("_atom_site lacks %s", required)
		}
	}

	n := len(values) / len(tags)
	if n == 0 {
		return nil, fmt.Errorf("_atom_site has no rows")
	}
	atoms := make([]Atom, 0, n)
	for r := 0; r < n; r++ {
		row := values[r*len(tags) : (r+1)*len(tags)]
		a := Atom{
			Record:  strings.ToUpper(get(row, "group_PDB")),
			Name:    get(row, "auth_atom_id", "label_atom_id"),
			AltLoc:  get(row, "label_alt_id"),
			ResName: get(row, "auth_comp_id", "label_comp_id"),
			Chain:   get(row, "auth_asym_id", "label_asym_id"),
			ICode:   get(row, "pdbx_PDB_ins_code"),
			Element: strings.ToUpper(get(row, "type_symbol")),
			Occ:     1,
			Model:   1,
		}
		if a.Record != "HETATM" {
			a.Record = "ATOM"
		}
		var err error
		if a.X, err = parseFloat(get(row, "Cartn_x")); err != nil {
			return nil, fmt.Errorf("row %d: Cartn_x: %w", r+1, err)
		}
		if a.Y, err = parseFloat(get(row, "Cartn_y")); err != nil {
			return nil, fmt.Errorf("row %d: Cartn_y: %w", r+1, err)
		}
		if a.Z, err = parseFloat(get(row, "Cartn_z")); err != nil {
			return nil, fmt.Errorf("row %d: Cartn_z: %w", r+1, err)
		}
		if v := get(row, "occupancy"); v != "" {
			a.Occ, _ = parseFloat(v)
		}
		if v := get(row, "B_iso_or_equiv"); v != "" {
			a.B, _ = parseFloat(v)
		}
		a.Serial, _ = strconv.Atoi(get(row, "id"))
		a.ResSeq, _ = strconv.Atoi(get(row, "auth_seq_id", "label_seq_id"))
		a.Charge, _ = strconv.Atoi(get(row, "pdbx_formal_charge"))
		if v, err := strconv.Atoi(get(row, "pdbx_PDB_model_num")); err == nil {
			a.Model = v
		}
		atoms = append(atoms, a)
	}
	return atoms, nil
}

func missing(v string) bool { return v == "." || v == "?" }

func parseFloat(v string) (float64, error) {
	// Standard uncertainties such as "12.345(6)" are dropped.
	if i := strings.IndexByte(v, '('); i > 0 {
		v = v[:i]
	}
	return strconv.ParseFloat(v, 64)
}

// WritePDB renders atoms as PDB records. Multiple models are wrapped in
// MODEL/ENDMDL; a TER record closes each run of polymer atoms of a chain.
func WritePDB(w io.Writer, atoms []Atom) {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	multi := len(atoms) > 0 && atoms[0].Model != atoms[len(atoms)-1].Model
	model := 0
	lastChain := ""
	open := false // a polymer run awaits its TER
	closeChain := func() {
		if open {
			bw.WriteString("TER\n")
			open = false
		}
	}

	for i, a := range atoms {
		if multi && (i == 0 || a.Model != model) {
			closeChain()
			if i > 0 {
				bw.WriteString("ENDMDL\n")
			}
			fmt.Fprintf(bw, "MODEL     %4d\n", a.Model)
			lastChain = ""
		}
		model = a.Model
		if a.Chain != lastChain || a.Record == "HETATM" {
			closeChain()
		}
		lastChain = a.Chain

		bw.WriteString(FormatAtom(a))
		bw.WriteByte('\n')
		if a.Record == "ATOM" {
			open = true
		}
	}
	closeChain()
	if multi {
		bw.WriteString("ENDMDL\n")
	}
	bw.WriteString("END\n")
}

// FormatAtom renders one fixed-column PDB ATOM/HETATM record. Atom names of
// one-letter elements shorter than four characters start in column 14.
func FormatAtom(a Atom) string {
	name := a.Name
	if len(name) < 4 && len(a.Element) == 1 {
		name = " " + name
	}
	chain := a.Chain
	if len(chain) > 1 {
		chain = chain[:1]
	}
	resName := a.ResName
	if len(resName) > 3 {
		resName = resName[:3]
	}
	return fmt.Sprintf("%-6s%5d %-4s%1s%3s %1s%4d%1s   %8.3f%8.3f%8.3f%6.2f%6.2f          %2s%2s",
		a.Record, a.Serial%100000, name, a.AltLoc, resName, chain, a.ResSeq, a.ICode,
		a.X, a.Y, a.Z, a.Occ, a.B, a.Element, formatCharge(a.Charge))
}

func formatCharge(c int) string {
	switch {
	case c > 0:
		return fmt.Sprintf("%d+", c)
	case c < 0:
		return fmt.Sprintf("%d-", -c)
	default:
		return ""
	}
}
