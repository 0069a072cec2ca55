package ux

import (
	"fmt"
	"sort"

	"github.com/xchecker/xchecker/internal/facade"
)

// RenderStatus prints the full status display for a spec (spec §6).
func RenderStatus(specID string, st facade.StatusOutput) {
	fmt.Printf("%sSpec:%s     %s\n", Bold, Reset, specID)
	fmt.Printf("%sRunner:%s   %s\n", Bold, Reset, st.Runner)
	if st.Distro != "" {
		fmt.Printf("%sDistro:%s   %s\n", Bold, Reset, st.Distro)
	}
	fmt.Printf("%sCanon:%s    %s\n", Bold, Reset, st.CanonAlgoVersion)

	if st.LockDrift != nil {
		fmt.Printf("\n%s⚠ Lock held by pid %d on %s%s\n", Yellow, st.LockDrift.Pid, st.LockDrift.Host, Reset)
	}

	fmt.Printf("\n%sArtifacts:%s\n", Bold, Reset)
	if len(st.Artifacts) == 0 {
		fmt.Printf("  %s(none)%s\n", Dim, Reset)
	}
	for _, a := range st.Artifacts {
		fmt.Printf("  %s%-40s%s %sblake3:%s%s\n", Cyan, a.Path, Reset, Dim, a.Blake3First8, Reset)
	}

	if st.LastReceiptPath != "" {
		fmt.Printf("\n%sLast receipt:%s %s\n", Bold, Reset, st.LastReceiptPath)
	}

	if st.PendingFixup != nil {
		fmt.Printf("\n%s↺ Pending fixup:%s %d target file(s)\n", Yellow, Reset, st.PendingFixup.TargetCount)
		for _, t := range st.PendingFixup.Targets {
			fmt.Printf("  %s%s%s\n", Dim, t, Reset)
		}
	}

	fmt.Printf("\n%sEffective config:%s\n", Bold, Reset)
	keys := make([]string, 0, len(st.EffectiveConfig))
	for k := range st.EffectiveConfig {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := st.EffectiveConfig[k]
		fmt.Printf("  %-35s %-20s %s(%s)%s\n", k, v.Value, Dim, v.Source, Reset)
	}
	fmt.Println()
}
