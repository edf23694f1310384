package benchmark

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

var vocabulary = strings.Fields(`boundary layer flow flat plate heat transfer hypersonic
	supersonic wing flutter shock wave interaction laminar turbulent transition
	pressure distribution slender body viscous drag mach number stagnation point
	heating nozzle jet compressible inviscid wake separation cylinder cone
	reynolds skin friction airfoil lift vortex panel method`)

// syntheticTexts returns n documents of roughly words words each, drawn
// from a fixed vocabulary with a fixed seed.
func syntheticTexts(n, words int) []string {
	rng := rand.New(rand.NewPCG(1, 2))
	texts := make([]string, n)
	var b strings.Builder
	for i := range texts {
		b.Reset()
		for w := range words {
			if w > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(vocabulary[rng.IntN(len(vocabulary))])
		}
		texts[i] = b.String()
	}
	return texts
}

func sizeName(n int) string {
	return fmt.Sprintf("docs_%d", n)
}
