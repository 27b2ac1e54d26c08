// Package seed provides the default knowledge base for bootstrapping magloop:
// binding rules for writing cmtj programs, glossary terms, and canonical examples.
package seed

import "github.com/nvandessel/magloop/internal/knowledge"

// SeedVersion is the version of the seed definitions.
// Bump this when seed content changes to trigger updates.
const SeedVersion = "1.0.0"

// Definition is one seed file, addressed by its path relative to the knowledge directory.
type Definition struct {
	Path  string
	Front knowledge.FrontMatter
	Body  string
}

func prio(p int) *int { return &p }

// coreEntries returns the seed knowledge base.
func coreEntries() []Definition {
	defs := coreRules()
	defs = append(defs, coreGlossary()...)
	return append(defs, coreExamples()...)
}

func coreRules() []Definition {
	return []Definition{
		{
			Path: "rules/010-imports.md",
			Front: knowledge.FrontMatter{
				ID: "imports", Title: "Imports", Generic: true, Priority: prio(10),
				Tags: []string{"cmtj"},
			},
			Body: "Import the simulation classes explicitly from cmtj, e.g. " +
				"`from cmtj import CVector, Layer, Junction, AxialDriver, ScalarDriver, NullDriver`. " +
				"Helpers such as FieldScan come from `cmtj.utils`. " +
				"Only cmtj, numpy, scipy and matplotlib are available; do not import anything else.",
		},
		{
			Path: "rules/020-construction-order.md",
			Front: knowledge.FrontMatter{
				ID: "construction-order", Title: "Object construction order", Generic: true, Priority: prio(9),
				Tags: []string{"junction", "layer"},
			},
			Body: "Build objects in this order: CVector values (magnetization, anisotropy axis, demagnetization tensor), " +
				"then every Layer, then `Junction([layers...])`, then attach drivers to the junction, " +
				"then `junction.runSimulation(total_time, time_step, write_frequency)`, then read `junction.getLog()`. " +
				"A program that never creates a Junction does not simulate anything.",
		},
		{
			Path: "rules/030-si-units.md",
			Front: knowledge.FrontMatter{
				ID: "si-units", Title: "SI units", Generic: true, Priority: prio(9),
				Tags: []string{"units", "magnetization", "anisotropy"},
			},
			Body: "All quantities are SI. Saturation magnetization Ms is given in Tesla (mu0*Ms), " +
				"anisotropy Ku in J/m^3, external and Oersted fields in A/m, thickness and cell surface in m and m^2, " +
				"time in seconds. Convert before use: 1 Oe = 79.5775 A/m, and a field of B mT is B*1e-3/mu0 A/m " +
				"with mu0 = 4*pi*1e-7.",
		},
		{
			Path: "rules/040-layer-ids.md",
			Front: knowledge.FrontMatter{
				ID: "layer-ids", Title: "Layer identifiers", Generic: true, Priority: prio(7),
				Tags: []string{"layer", "junction"},
			},
			Body: "Every Layer gets a unique string id. Driver setters on the junction take that id as their first " +
				"argument; the id \"all\" applies the driver to every layer. Log keys are built from the same id: " +
				"`<id>_mx`, `<id>_my`, `<id>_mz`, plus `time`.",
		},
		{
			Path: "rules/050-runtime.md",
			Front: knowledge.FrontMatter{
				ID: "runtime", Title: "Keep runs short", Generic: true, Priority: prio(8),
			},
			Body: "The program must finish within seconds. Keep the simulated time at or below 20 ns per run, use a " +
				"time step of 1e-12 s or larger, and keep sweeps under 50 points. Call `junction.clearLog()` " +
				"before each run of a sweep.",
		},
		{
			Path: "rules/060-no-display.md",
			Front: knowledge.FrontMatter{
				ID: "no-display", Title: "No interactive display", Generic: true, Priority: prio(6),
				Tags: []string{"plotting"},
			},
			Body: "Never call `plt.show()` or open windows. If a figure is useful, save it with `plt.savefig(...)`. " +
				"Print the key numeric result (e.g. the resonance frequency) so the run has visible output.",
		},
		{
			Path: "rules/100-sot.md",
			Front: knowledge.FrontMatter{
				ID: "sot-torques", Title: "Spin-orbit torque", Priority: prio(7),
				Tags: []string{"sot", "current"},
			},
			Body: "For spin-orbit torque create the free layer with `Layer.createSOTLayer(...)` and drive the torques " +
				"with `junction.setLayerFieldLikeTorqueDriver(id, driver)` and " +
				"`junction.setLayerDampingLikeTorqueDriver(id, driver)`, using ScalarDriver values in A/m.",
		},
		{
			Path: "rules/110-stt.md",
			Front: knowledge.FrontMatter{
				ID: "stt-torques", Title: "Spin-transfer torque", Priority: prio(6),
				Tags: []string{"stt", "current"},
			},
			Body: "For spin-transfer torque create the free layer with `Layer.createSTTLayer(...)`, set the polarization " +
				"with `layer.setReferenceLayer(CVector(...))` and drive it with " +
				"`junction.setLayerCurrentDriver(id, ScalarDriver.getConstantScalarDriver(j))` where j is in A/m^2.",
		},
		{
			Path: "rules/120-field-sweep.md",
			Front: knowledge.FrontMatter{
				ID: "field-sweep", Title: "Field sweeps", Priority: prio(6),
				Tags: []string{"field-sweep"},
			},
			Body: "Generate sweep points with `FieldScan.amplitude_scan(start, stop, steps, theta, phi)` from cmtj.utils; " +
				"it returns the amplitudes and the field vectors. For each vector set " +
				"`junction.setLayerExternalFieldDriver(\"all\", AxialDriver(*vector))`, run, read the log, then clear it.",
		},
		{
			Path: "rules/130-pimm.md",
			Front: knowledge.FrontMatter{
				ID: "pimm-excitation", Title: "PIMM excitation", Priority: prio(7),
				Tags: []string{"pimm", "fmr"},
			},
			Body: "PIMM excites the layer with a short Oersted field pulse, e.g. " +
				"`AxialDriver(NullDriver(), NullDriver(), ScalarDriver.getStepDriver(0, amplitude, 0, pulse_width))` " +
				"set with `junction.setLayerOerstedFieldDriver(\"all\", ...)`. The spectrum is the FFT of the mz " +
				"(or resistance) trace after the pulse; the peak gives the resonance frequency.",
		},
		{
			Path: "rules/140-vsd.md",
			Front: knowledge.FrontMatter{
				ID: "vsd-excitation", Title: "Voltage spin diode", Priority: prio(6),
				Tags: []string{"vsd", "fmr", "mr"},
			},
			Body: "VSD drives the junction with an oscillating excitation, e.g. " +
				"`ScalarDriver.getSineDriver(0, amplitude, frequency, 0)`, and measures the rectified voltage. " +
				"Sweep the frequency at fixed field; resistance parameters are required to compute a voltage.",
		},
		{
			Path: "rules/150-pma.md",
			Front: knowledge.FrontMatter{
				ID: "pma-setup", Title: "Perpendicular anisotropy", Priority: prio(5),
				Tags: []string{"pma", "anisotropy"},
			},
			Body: "For PMA point the anisotropy axis along z (`CVector(0, 0, 1)`) and use a thin-film demagnetization " +
				"tensor `[CVector(0, 0, 0), CVector(0, 0, 0), CVector(0, 0, 1)]`. Ku must exceed the shape " +
				"anisotropy Ms^2/(2*mu0) for the easy axis to stay out of plane.",
		},
		{
			Path: "rules/160-exchange.md",
			Front: knowledge.FrontMatter{
				ID: "interlayer-exchange", Title: "Interlayer exchange", Priority: prio(5),
				Tags: []string{"exchange", "multilayer"},
			},
			Body: "Couple two layers with `junction.setIECDriver(bottom_id, top_id, ScalarDriver.getConstantScalarDriver(J))` " +
				"where J is in J/m^2. Negative J is antiferromagnetic coupling.",
		},
		{
			Path: "rules/170-thermal.md",
			Front: knowledge.FrontMatter{
				ID: "thermal-noise", Title: "Thermal noise", Priority: prio(4),
				Tags: []string{"thermal"},
			},
			Body: "Add temperature with `layer.setTemperatureDriver(ScalarDriver.getConstantScalarDriver(T))` in kelvin. " +
				"Thermal runs need a smaller time step (1e-13 s) and several repetitions to average.",
		},
	}
}

func coreGlossary() []Definition {
	term := func(id, title, body string, tags ...string) Definition {
		return Definition{
			Path:  "glossary/" + id + ".md",
			Front: knowledge.FrontMatter{ID: "term-" + id, Title: title, Tags: tags, Priority: prio(3)},
			Body:  body,
		}
	}
	return []Definition{
		term("fm", "FM", "Ferromagnet: the magnetic layer whose magnetization dynamics are simulated.", "layer"),
		term("hm", "HM", "Heavy metal: a non-magnetic layer with strong spin-orbit coupling that generates spin-orbit torque.", "sot"),
		term("sot", "SOT", "Spin-orbit torque: torque on the FM from a charge current in an adjacent HM; has damping-like and field-like components.", "sot"),
		term("stt", "STT", "Spin-transfer torque: torque from a spin-polarized current flowing through the junction.", "stt"),
		term("llg", "LLG", "Landau-Lifshitz-Gilbert equation: the equation of motion for magnetization, with Gilbert damping alpha.", "llg", "damping"),
		term("pimm", "PIMM", "Pulse-induced microwave magnetometry: excite with a field pulse and read the ringdown spectrum.", "pimm", "fmr"),
		term("fmr", "FMR", "Ferromagnetic resonance: precession frequency of the magnetization at a given field.", "fmr"),
		term("vsd", "VSD", "Voltage spin diode: rectified DC voltage from an oscillating current mixing with oscillating resistance.", "vsd"),
		term("pma", "PMA", "Perpendicular magnetic anisotropy: easy axis normal to the film plane.", "pma", "anisotropy"),
		term("dmi", "DMI", "Dzyaloshinskii-Moriya interaction: antisymmetric exchange favouring chiral textures.", "dmi"),
		term("demag", "Demagnetization tensor", "Diagonal shape tensor (three CVector rows) describing the demagnetizing field of a layer.", "layer"),
		term("iec", "IEC", "Interlayer exchange coupling between two magnetic layers across a spacer.", "exchange", "multilayer"),
	}
}

func coreExamples() []Definition {
	return []Definition{
		{
			Path:  "examples/free_layer_relaxation.py",
			Front: knowledge.FrontMatter{ID: "example-free-layer", Title: "Free layer relaxing in an external field", Tags: []string{"magnetization", "llg"}, Priority: prio(6)},
			Body: `import numpy as np
from cmtj import AxialDriver, CVector, Junction, Layer

demag = [CVector(0, 0, 0), CVector(0, 0, 0), CVector(0, 0, 1)]
free = Layer(
    "free",
    mag=CVector(0.1, 0.1, 0.9),
    anis=CVector(0, 0, 1),
    Ms=1.2,  # T
    thickness=1.4e-9,
    cellSurface=1e-16,
    demagTensor=demag,
    damping=0.01,
)
junction = Junction([free])
junction.setLayerExternalFieldDriver("all", AxialDriver(CVector(200e3, 0, 0)))  # A/m
junction.runSimulation(5e-9, 1e-12, 1e-12)

log = junction.getLog()
m = np.asarray([log["free_mx"], log["free_my"], log["free_mz"]])
print("final magnetization:", m[:, -1])`,
		},
		{
			Path:  "examples/pimm_spectrum.py",
			Front: knowledge.FrontMatter{ID: "example-pimm", Title: "PIMM spectrum of a PMA free layer", Tags: []string{"pimm", "fmr", "pma"}, Priority: prio(7)},
			Body: `import numpy as np
from cmtj import AxialDriver, CVector, Junction, Layer, NullDriver, ScalarDriver

demag = [CVector(0, 0, 0), CVector(0, 0, 0), CVector(0, 0, 1)]
free = Layer(
    "free",
    mag=CVector(0, 0, 1),
    anis=CVector(0, 0, 1),
    Ms=1.0,  # T
    thickness=1.0e-9,
    cellSurface=1e-16,
    demagTensor=demag,
    damping=0.005,
)
junction = Junction([free])
junction.setLayerAnisotropyDriver("free", ScalarDriver.getConstantScalarDriver(0.8e6))  # J/m^3
junction.setLayerExternalFieldDriver("all", AxialDriver(CVector(300e3, 0, 0)))
junction.setLayerOerstedFieldDriver(
    "all", AxialDriver(NullDriver(), NullDriver(), ScalarDriver.getStepDriver(0, 1000, 0, 1e-11))
)

dt = 1e-12
junction.runSimulation(10e-9, dt, dt)
mz = np.asarray(junction.getLog()["free_mz"])
spectrum = np.abs(np.fft.rfft(mz - mz.mean()))
freqs = np.fft.rfftfreq(len(mz), dt)
print(f"resonance: {freqs[np.argmax(spectrum[1:]) + 1] / 1e9:.2f} GHz")`,
		},
		{
			Path:  "examples/sot_switching.py",
			Front: knowledge.FrontMatter{ID: "example-sot", Title: "SOT driven switching", Tags: []string{"sot", "current"}, Priority: prio(6)},
			Body: `from cmtj import AxialDriver, CVector, Junction, Layer, ScalarDriver

demag = [CVector(0, 0, 0), CVector(0, 0, 0), CVector(0, 0, 1)]
free = Layer.createSOTLayer(
    id="free",
    mag=CVector(0, 0, 1),
    anis=CVector(0, 0, 1),
    Ms=1.1,  # T
    thickness=1.0e-9,
    cellSurface=1e-16,
    demagTensor=demag,
    damping=0.02,
)
junction = Junction([free])
junction.setLayerAnisotropyDriver("free", ScalarDriver.getConstantScalarDriver(0.6e6))
junction.setLayerExternalFieldDriver("all", AxialDriver(CVector(5e3, 0, 0)))
junction.setLayerDampingLikeTorqueDriver("free", ScalarDriver.getStepDriver(0, 8e3, 1e-9, 3e-9))
junction.setLayerFieldLikeTorqueDriver("free", ScalarDriver.getConstantScalarDriver(1e3))
junction.runSimulation(6e-9, 1e-12, 1e-12)

log = junction.getLog()
print("mz before/after:", log["free_mz"][0], log["free_mz"][-1])`,
		},
		{
			Path:  "examples/field_sweep.py",
			Front: knowledge.FrontMatter{ID: "example-field-sweep", Title: "Static field sweep", Tags: []string{"field-sweep", "magnetization"}, Priority: prio(5)},
			Body: `import numpy as np
from cmtj import AxialDriver, CVector, Junction, Layer
from cmtj.utils import FieldScan

demag = [CVector(0, 0, 0), CVector(0, 0, 0), CVector(0, 0, 1)]
free = Layer(
    "free",
    mag=CVector(1, 0, 0),
    anis=CVector(1, 0, 0),
    Ms=1.3,  # T
    thickness=2e-9,
    cellSurface=1e-16,
    demagTensor=demag,
    damping=0.01,
)
junction = Junction([free])
Hspan, Hvecs = FieldScan.amplitude_scan(-400e3, 400e3, 40, 90, 0)

mx = []
for H in Hvecs:
    junction.clearLog()
    junction.setLayerExternalFieldDriver("all", AxialDriver(CVector(*H)))
    junction.runSimulation(2e-9, 1e-12, 1e-12)
    mx.append(np.mean(junction.getLog()["free_mx"][-100:]))
print("mx range:", min(mx), max(mx))`,
		},
	}
}
